// Package notifications posts batch run summaries to an ntfy topic.
//
// NewService returns a no-op implementation when notifications.ntfy_topic is
// empty, so callers can notify unconditionally.
package notifications

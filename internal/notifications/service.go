package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"recogni/internal/config"
)

const userAgent = "recogni/0.1.0"

// RunReport summarizes one transcription run.
type RunReport struct {
	Input          string
	Processed      int
	Failed         int
	Skipped        int
	StoreFailures  int
	UploadFailures int
	Duration       time.Duration
}

// Service defines the notifications sent by the CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, report RunReport) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, report RunReport) error {
	durationText := formatDuration(report.Duration)
	input := filepath.Base(strings.TrimSpace(report.Input))
	if input == "." || input == "" {
		input = "input"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d processed, %d failed, %d skipped in %s", input, report.Processed, report.Failed, report.Skipped, durationText)
	if report.StoreFailures > 0 {
		fmt.Fprintf(&b, "\nStore failures: %d", report.StoreFailures)
	}
	if report.UploadFailures > 0 {
		fmt.Fprintf(&b, "\nUpload failures: %d", report.UploadFailures)
	}

	data := payload{
		title:   "recogni - Run Complete",
		message: b.String(),
		tags:    []string{"recogni", "run", "completed"},
	}
	if report.Failed > 0 || report.StoreFailures > 0 || report.UploadFailures > 0 {
		data.title = "recogni - Run Complete (with errors)"
		data.tags = []string{"recogni", "run", "warning"}
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	return n.send(ctx, payload{
		title:    "recogni - Error",
		message:  builder.String(),
		tags:     []string{"recogni", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "recogni - Test",
		message:  "Notification system test",
		tags:     []string{"recogni", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, RunReport) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error    { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }

// Enabled reports whether svc delivers notifications.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
}

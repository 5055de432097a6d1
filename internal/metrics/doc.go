// Package metrics computes per-transcript statistics: total word count, speaking
// rate, the most frequent words and the share of courtesy phrases ("magic
// words") relative to the word count.
//
// The engine is pure. Analyze reads a segment slice, never mutates it, and
// builds all counters fresh per call, so one Engine may be shared freely.
package metrics

// Package metrics exposes hooks for site map build observability. The
// default NoopRecorder lets callers inject metrics optionally.
package metrics

import "time"

// Outcome labels a finished site map crawl.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Recorder receives build and serving measurements.
type Recorder interface {
	ObserveCrawlDuration(d time.Duration)
	IncCrawlOutcome(outcome Outcome)
	AddPagesFetched(n int)
	IncMemoHit()
	IncDuplicateSlug()
	IncOverrideFallback(property string)
	ObservePublishDuration(d time.Duration)
	IncHTTPRequest(route string, status int)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveCrawlDuration(time.Duration)   {}
func (NoopRecorder) IncCrawlOutcome(Outcome)              {}
func (NoopRecorder) AddPagesFetched(int)                  {}
func (NoopRecorder) IncMemoHit()                          {}
func (NoopRecorder) IncDuplicateSlug()                    {}
func (NoopRecorder) IncOverrideFallback(string)           {}
func (NoopRecorder) ObservePublishDuration(time.Duration) {}
func (NoopRecorder) IncHTTPRequest(string, int)           {}

// OrNoop returns r, or a NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}

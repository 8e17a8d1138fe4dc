package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveCrawlDuration(150 * time.Millisecond)
	pr.IncCrawlOutcome(OutcomeSuccess)
	pr.AddPagesFetched(7)
	pr.IncMemoHit()
	pr.IncDuplicateSlug()
	pr.IncOverrideFallback("Published")
	pr.ObservePublishDuration(time.Second)
	pr.IncHTTPRequest("/api/site-map", 200)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	values := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				values[mf.GetName()] += c.GetValue()
			}
		}
	}
	if got := values["blockpress_pages_fetched_total"]; got != 7 {
		t.Fatalf("pages fetched = %v, want 7", got)
	}
	if got := values["blockpress_timestamp_override_fallbacks_total"]; got != 1 {
		t.Fatalf("override fallbacks = %v, want 1", got)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncDuplicateSlug()
	pr.AddPagesFetched(1)
	pr.IncHTTPRequest("/", 500)
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopRecorder); !ok {
		t.Fatal("OrNoop(nil) should return NoopRecorder")
	}
	pr := NewPrometheusRecorder(nil)
	if OrNoop(pr) != Recorder(pr) {
		t.Fatal("OrNoop should pass through a non-nil recorder")
	}
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncCrawlOutcome(OutcomeFailed)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "blockpress_crawl_outcomes_total") {
		t.Fatalf("body missing crawl outcomes metric:\n%s", rec.Body.String())
	}
}

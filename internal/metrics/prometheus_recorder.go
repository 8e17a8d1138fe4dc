package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blockpress"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	crawlDuration    prom.Histogram
	crawlOutcomes    *prom.CounterVec
	pagesFetched     prom.Counter
	memoHits         prom.Counter
	duplicateSlugs   prom.Counter
	overrideFallback *prom.CounterVec
	publishDuration  prom.Histogram
	httpRequests     *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the metrics on reg. A nil
// reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.crawlDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "crawl_duration_seconds",
			Help:      "Duration of site map crawls",
			Buckets:   prom.DefBuckets,
		})
		pr.crawlOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "crawl_outcomes_total",
			Help:      "Site map crawls by outcome",
		}, []string{"outcome"})
		pr.pagesFetched = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Pages fetched from the content store",
		})
		pr.memoHits = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "site_map_memo_hits_total",
			Help:      "Site map requests served from the memo",
		})
		pr.duplicateSlugs = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_slugs_total",
			Help:      "Pages dropped because their canonical slug was taken",
		})
		pr.overrideFallback = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "timestamp_override_fallbacks_total",
			Help:      "Timestamp override properties that failed to parse",
		}, []string{"property"})
		pr.publishDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_duration_seconds",
			Help:      "Duration of static site publishes",
			Buckets:   prom.DefBuckets,
		})
		pr.httpRequests = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"route", "status"})
		reg.MustRegister(pr.crawlDuration, pr.crawlOutcomes, pr.pagesFetched, pr.memoHits,
			pr.duplicateSlugs, pr.overrideFallback, pr.publishDuration, pr.httpRequests)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveCrawlDuration(d time.Duration) {
	if p == nil || p.crawlDuration == nil {
		return
	}
	p.crawlDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCrawlOutcome(outcome Outcome) {
	if p == nil || p.crawlOutcomes == nil {
		return
	}
	p.crawlOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddPagesFetched(n int) {
	if p == nil || p.pagesFetched == nil {
		return
	}
	p.pagesFetched.Add(float64(n))
}

func (p *PrometheusRecorder) IncMemoHit() {
	if p == nil || p.memoHits == nil {
		return
	}
	p.memoHits.Inc()
}

func (p *PrometheusRecorder) IncDuplicateSlug() {
	if p == nil || p.duplicateSlugs == nil {
		return
	}
	p.duplicateSlugs.Inc()
}

func (p *PrometheusRecorder) IncOverrideFallback(property string) {
	if p == nil || p.overrideFallback == nil {
		return
	}
	p.overrideFallback.WithLabelValues(property).Inc()
}

func (p *PrometheusRecorder) ObservePublishDuration(d time.Duration) {
	if p == nil || p.publishDuration == nil {
		return
	}
	p.publishDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncHTTPRequest(route string, status int) {
	if p == nil || p.httpRequests == nil {
		return
	}
	p.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// HTTPHandler serves the metrics gathered by reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

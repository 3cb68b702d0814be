// Package metrics provides Prometheus metrics for monitoring the scroll session.
package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch results.
const (
	FetchOK          = "ok"
	FetchStatusError = "status_error"
	FetchError       = "error"
	FetchNoFragment  = "no_fragment"
)

var (
	// PagesFetched counts listing page fetches by result.
	PagesFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_scroll_pages_fetched_total",
			Help: "Total number of listing pages fetched",
		},
		[]string{"result"},
	)

	// FetchDuration tracks listing page fetch duration.
	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "marketplace_scroll_fetch_duration_seconds",
			Help:    "Listing page fetch duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
	)

	// ItemsRendered counts items appended to the listing.
	ItemsRendered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_scroll_items_rendered_total",
			Help: "Total listing items appended to the page",
		},
	)

	// DuplicatesSkipped counts fetched items dropped because they were already shown.
	DuplicatesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_scroll_duplicates_skipped_total",
			Help: "Total fetched items skipped as duplicates",
		},
	)

	// LoadedPages shows how many extra pages have been requested.
	LoadedPages = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketplace_scroll_loaded_pages",
			Help: "Number of additional listing pages requested",
		},
	)

	// MaxPage shows the last page number of the listing.
	MaxPage = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketplace_scroll_max_page",
			Help: "Last page number of the listing",
		},
	)

	// MonitorLoading is 1 while a page load is in flight.
	MonitorLoading = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketplace_scroll_monitor_loading",
			Help: "1 while a page load is in flight, 0 when idle",
		},
	)

	// ZoomOverlaysOpened counts zoom overlays shown.
	ZoomOverlaysOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_scroll_zoom_overlays_opened_total",
			Help: "Total zoom overlays opened",
		},
	)

	// SelectorReloads counts reloads of the selectors file by result.
	SelectorReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_scroll_selector_reloads_total",
			Help: "Total selectors file reloads",
		},
		[]string{"result"},
	)

	// MemoryUsageBytes shows current memory usage.
	MemoryUsageBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketplace_scroll_memory_usage_bytes",
			Help: "Current memory usage in bytes (alloc)",
		},
	)

	// GoroutineCount shows current goroutine count.
	GoroutineCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketplace_scroll_goroutines",
			Help: "Current number of goroutines",
		},
	)

	// HandlerPanics counts recovered status API handler panics by route.
	HandlerPanics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_scroll_handler_panics_total",
			Help: "Status API handler panics recovered, by route",
		},
		[]string{"route"},
	)

	// BuildInfo provides build information as labels.
	BuildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marketplace_scroll_build_info",
			Help: "Build information",
		},
		[]string{"version", "go_version"},
	)
)

func init() {
	prometheus.MustRegister(
		PagesFetched,
		FetchDuration,
		ItemsRendered,
		DuplicatesSkipped,
		LoadedPages,
		MaxPage,
		MonitorLoading,
		ZoomOverlaysOpened,
		SelectorReloads,
		MemoryUsageBytes,
		GoroutineCount,
		HandlerPanics,
		BuildInfo,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, goVersion string) {
	BuildInfo.WithLabelValues(version, goVersion).Set(1)
}

// StartMemoryCollector starts a goroutine that periodically updates memory metrics.
func StartMemoryCollector(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			updateMemoryMetrics()
		case <-stopCh:
			return
		}
	}
}

func updateMemoryMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	MemoryUsageBytes.Set(float64(m.Alloc))
	GoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// RecordFetch records a completed listing page fetch.
func RecordFetch(result string, duration time.Duration) {
	PagesFetched.WithLabelValues(result).Inc()
	FetchDuration.Observe(duration.Seconds())
}

// RecordBatch records the outcome of merging one fetched page.
func RecordBatch(rendered, skipped int) {
	ItemsRendered.Add(float64(rendered))
	DuplicatesSkipped.Add(float64(skipped))
}

// UpdatePagination updates the pagination gauges.
func UpdatePagination(loaded, maxPage int) {
	LoadedPages.Set(float64(loaded))
	MaxPage.Set(float64(maxPage))
}

// SetMonitorLoading sets the monitor state gauge.
func SetMonitorLoading(loading bool) {
	if loading {
		MonitorLoading.Set(1)
		return
	}
	MonitorLoading.Set(0)
}

// RecordZoomOpened records a zoom overlay being shown.
func RecordZoomOpened() {
	ZoomOverlaysOpened.Inc()
}

// RecordSelectorReload records a selectors file reload.
func RecordSelectorReload(ok bool) {
	if ok {
		SelectorReloads.WithLabelValues("ok").Inc()
		return
	}
	SelectorReloads.WithLabelValues("error").Inc()
}

// RecordHandlerPanic records a recovered status API handler panic.
func RecordHandlerPanic(route string) {
	HandlerPanics.WithLabelValues(route).Inc()
}

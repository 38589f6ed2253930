// Package metrics exposes Prometheus collectors for the recipe crawler.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	categoriesTotal   prometheus.Counter
	urlsGatheredTotal prometheus.Counter
	listingPagesTotal *prometheus.CounterVec
	fieldMissesTotal  *prometheus.CounterVec
	recordsTotal      *prometheus.CounterVec
	imageUploadsTotal *prometheus.CounterVec
	activeWorkers     prometheus.Gauge

	once sync.Once
)

// Init registers the collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		categoriesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "scraper_categories_total",
			Help: "Total number of categories discovered.",
		})
		urlsGatheredTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "scraper_urls_gathered_total",
			Help: "Total number of item URLs gathered across categories.",
		})
		listingPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_listing_pages_total",
			Help: "Listing pages walked, labeled by outcome.",
		}, []string{"status"})
		fieldMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_field_misses_total",
			Help: "Detail-page fields that could not be extracted, by field.",
		}, []string{"field"})
		recordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_records_total",
			Help: "Records persisted, labeled written or skipped.",
		}, []string{"status"})
		imageUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_image_uploads_total",
			Help: "Image upload attempts, labeled by outcome.",
		}, []string{"status"})
		activeWorkers = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "scraper_active_workers",
			Help: "Number of workers currently processing a detail page.",
		})
	})
}

// Handler returns an http.Handler serving the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCategories adds to the discovered-category counter.
func ObserveCategories(n int) {
	if categoriesTotal == nil {
		return
	}
	categoriesTotal.Add(float64(n))
}

// ObserveURLs adds to the gathered-URL counter.
func ObserveURLs(n int) {
	if urlsGatheredTotal == nil {
		return
	}
	urlsGatheredTotal.Add(float64(n))
}

// ObservePageWalk counts one walked listing page.
func ObservePageWalk(status string) {
	if listingPagesTotal == nil {
		return
	}
	listingPagesTotal.WithLabelValues(status).Inc()
}

// ObserveFieldMiss counts one unextractable field.
func ObserveFieldMiss(field string) {
	if fieldMissesTotal == nil {
		return
	}
	fieldMissesTotal.WithLabelValues(field).Inc()
}

// ObserveRecord counts one persisted (or skipped) record.
func ObserveRecord(status string) {
	if recordsTotal == nil {
		return
	}
	recordsTotal.WithLabelValues(status).Inc()
}

// ObserveImageUpload counts one image upload attempt.
func ObserveImageUpload(status string) {
	if imageUploadsTotal == nil {
		return
	}
	imageUploadsTotal.WithLabelValues(status).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Dec()
}

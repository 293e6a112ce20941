// Package metrics holds the prometheus collectors shared by the store and
// the HTTP server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RouteQueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waymap_route_queries_total",
		Help: "Route queries by kind and result",
	}, []string{"kind", "result"})
	RouteDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "waymap_route_duration_ms",
		Help:    "Route query duration in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
	}, []string{"kind"})
	RouteSteps = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "waymap_route_steps",
		Help:    "Number of steps in returned walks",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
	WayMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waymap_way_mutations_total",
		Help: "Way network mutations by operation",
	}, []string{"op"})
	TrimmedLengthTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "waymap_trimmed_length_total",
		Help: "Total way length removed by trim",
	})
	RegistryMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waymap_registry_mutations_total",
		Help: "Place, area and hierarchy mutations by operation",
	}, []string{"op"})
	WaysGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "waymap_ways",
		Help: "Ways currently in the network",
	})
	PlacesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "waymap_places",
		Help: "Places currently in the registry",
	})
	AreasGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "waymap_areas",
		Help: "Areas currently in the registry",
	})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waymap_http_requests_total",
		Help: "HTTP requests by route pattern and status code",
	}, []string{"route", "code"})
	HTTPRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "waymap_http_rejected_total",
		Help: "HTTP requests rejected before reaching a handler",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(RouteQueriesTotal)
	prometheus.MustRegister(RouteDurationMs)
	prometheus.MustRegister(RouteSteps)
	prometheus.MustRegister(WayMutationsTotal)
	prometheus.MustRegister(TrimmedLengthTotal)
	prometheus.MustRegister(RegistryMutationsTotal)
	prometheus.MustRegister(WaysGauge)
	prometheus.MustRegister(PlacesGauge)
	prometheus.MustRegister(AreasGauge)
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRejectedTotal)
}

// Result labels for RouteQueriesTotal.
const (
	ResultOK      = "ok"
	ResultNoRoute = "no_route"
	ResultError   = "error"
)

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }

package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "decor_serve"

// Metrics holds Prometheus metrics for the HTTP API and the generation pipeline
type Metrics struct {
	RequestCounter     *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	Generations        *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	GenerationCost     *prometheus.CounterVec
	QueueDepth         prometheus.Gauge
}

// NewMetrics registers the metrics with reg. A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Generations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "total",
				Help:      "Decorated image generations by model and outcome",
			},
			[]string{"model", "outcome"},
		),
		GenerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "duration_seconds",
				Help:      "Time spent calling the image provider, resizing and storing the result",
				Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
			},
			[]string{"model"},
		),
		GenerationCost: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "estimated_cost_usd_total",
				Help:      "Estimated provider cost in USD",
			},
			[]string{"model"},
		),
		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "queue_depth",
				Help:      "Number of generation jobs waiting for a worker",
			},
		),
	}
}

func (m *Metrics) ObserveGeneration(model, outcome string, elapsed time.Duration, costUSD float64) {
	m.Generations.WithLabelValues(model, outcome).Inc()
	m.GenerationDuration.WithLabelValues(model).Observe(elapsed.Seconds())
	if costUSD > 0 {
		m.GenerationCost.WithLabelValues(model).Add(costUSD)
	}
}

// Middleware records request counts and latency per matched route.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		m.RequestCounter.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Package metrics exports payment and HTTP metrics to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gatepay"

type Collector struct {
	registry *prometheus.Registry

	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errors            *prometheus.CounterVec
	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

// New registers the gatepay collectors plus the Go and process collectors
// on a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_operations_total",
			Help:      "Gateway actions by outcome.",
		}, []string{"gateway", "action", "result"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_operation_duration_seconds",
			Help:      "Gateway action latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"gateway", "action"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_errors_total",
			Help:      "Gateway action errors by kind.",
		}, []string{"gateway", "action", "kind"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.operations,
		c.operationDuration,
		c.errors,
		c.requests,
		c.requestDuration,
	)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) RecordOperationDuration(gateway, action string, d time.Duration) {
	c.operationDuration.WithLabelValues(gateway, action).Observe(d.Seconds())
}

func (c *Collector) RecordOperationResult(gateway, action, result string) {
	c.operations.WithLabelValues(gateway, action, result).Inc()
}

func (c *Collector) RecordError(gateway, action, kind string) {
	c.errors.WithLabelValues(gateway, action, kind).Inc()
}

// Middleware records request count and latency by route pattern.
func (c *Collector) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if ctx.Path() == "/metrics" {
			return ctx.Next()
		}
		start := time.Now()
		err := ctx.Next()

		status := ctx.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		path := ctx.Route().Path
		method := ctx.Method()
		c.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		c.requestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
}

package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/formflow/backend/internal/inheritance"
)

const namespace = "formflow"

// Metrics holds the collectors of the service. It implements
// inheritance.Observer and session.Observer.
type Metrics struct {
	registry *prometheus.Registry

	templatesMatched     prometheus.Counter
	tasks                *prometheus.CounterVec
	notificationFailures prometheus.Counter
	inheritanceRuns      prometheus.Counter
	bootstraps           *prometheus.CounterVec

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	dbOpen prometheus.Gauge
	dbIdle prometheus.Gauge
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		templatesMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inheritance_templates_matched_total",
			Help:      "Active task templates matched by submitted responses.",
		}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inheritance_tasks_total",
			Help:      "Spawn outcomes per matched template.",
		}, []string{"outcome"}),
		notificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inheritance_notification_failures_total",
			Help:      "Tasks created whose assignment notification could not be stored.",
		}),
		inheritanceRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inheritance_runs_total",
			Help:      "Orchestrator runs, one per submitted response.",
		}),
		bootstraps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_bootstraps_total",
			Help:      "Finished session bootstraps by result.",
		}, []string{"result"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		dbOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "database_connections_open",
			Help:      "Open database connections.",
		}),
		dbIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "database_connections_idle",
			Help:      "Idle database connections.",
		}),
	}

	m.registry.MustRegister(
		m.templatesMatched,
		m.tasks,
		m.notificationFailures,
		m.inheritanceRuns,
		m.bootstraps,
		m.requests,
		m.requestDuration,
		m.dbOpen,
		m.dbIdle,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveInheritance records the aggregate of one orchestrator run.
func (m *Metrics) ObserveInheritance(result *inheritance.Result) {
	if result == nil {
		return
	}
	m.inheritanceRuns.Inc()
	m.templatesMatched.Add(float64(result.Matched))
	m.tasks.WithLabelValues("created").Add(float64(len(result.Created)))
	m.tasks.WithLabelValues("skipped").Add(float64(len(result.Skipped)))
	m.tasks.WithLabelValues("failed").Add(float64(len(result.Failed)))
	m.notificationFailures.Add(float64(len(result.NotificationFailures)))
}

// ObserveBootstrap counts a finished session bootstrap.
func (m *Metrics) ObserveBootstrap(result string) {
	m.bootstraps.WithLabelValues(result).Inc()
}

// Middleware records request counts and latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// UpdateDatabaseConnections samples the connection pool of db.
func (m *Metrics) UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	m.dbOpen.Set(float64(stats.OpenConnections))
	m.dbIdle.Set(float64(stats.Idle))
	return nil
}

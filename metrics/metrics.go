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

// Metrics holds the HTTP and scheduling collectors. A nil *Metrics is a
// valid no-op.
type Metrics struct {
	reg prometheus.Gatherer

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	created         prometheus.Counter
	conflicts       prometheus.Counter
	rejections      *prometheus.CounterVec
	remindersSent   *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg gets a fresh registry with
// the Go and process collectors.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m := &Metrics{
		reg: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dental",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dental",
			Name:      "appointments_created_total",
			Help:      "Appointments booked",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dental",
			Name:      "scheduling_conflicts_total",
			Help:      "Scheduling requests rejected because the slot was taken",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Name:      "scheduling_rejections_total",
			Help:      "Scheduling requests rejected by reason",
		}, []string{"reason"}),
		remindersSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Name:      "reminders_total",
			Help:      "Appointment reminder e-mails by outcome",
		}, []string{"status"}),
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration, m.created, m.conflicts, m.rejections, m.remindersSent)
	return m
}

// AppointmentCreated and Rejected make *Metrics a scheduling observer.
func (m *Metrics) AppointmentCreated() {
	if m == nil {
		return
	}
	m.created.Inc()
}

func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	if reason == "conflict" {
		m.conflicts.Inc()
	}
	m.rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) ReminderSent(ok bool) {
	if m == nil {
		return
	}
	status := "sent"
	if !ok {
		status = "failed"
	}
	m.remindersSent.WithLabelValues(status).Inc()
}

// Middleware records count and latency per matched route, so path
// parameters do not explode the label set.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		m.requestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the exposition format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{}))
}

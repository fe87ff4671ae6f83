package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives request pipeline observations.
type Recorder interface {
	ObserveRequest(method string, status int, duration time.Duration)
	IncRetry(kind string)
	IncRefresh(outcome string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveRequest(string, int, time.Duration) {}
func (Nop) IncRetry(string)                           {}
func (Nop) IncRefresh(string)                         {}

type options struct {
	namespace string
	registry  prometheus.Registerer
	buckets   []float64
}

type Option func(*options)

func WithNamespace(namespace string) Option {
	return func(o *options) {
		o.namespace = namespace
	}
}

func WithRegistry(registry prometheus.Registerer) Option {
	return func(o *options) {
		o.registry = registry
	}
}

func WithBuckets(buckets []float64) Option {
	return func(o *options) {
		o.buckets = buckets
	}
}

// Prometheus records pipeline metrics as Prometheus collectors.
type Prometheus struct {
	requestDuration *prometheus.HistogramVec
	retries         *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
}

var _ Recorder = (*Prometheus)(nil)

func NewPrometheus(opts ...Option) *Prometheus {
	o := options{
		namespace: "pooladmin",
		registry:  prometheus.DefaultRegisterer,
		buckets:   prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(&o)
	}

	factory := promauto.With(o.registry)
	return &Prometheus{
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Backend request duration in seconds, per attempt",
			Buckets:   o.buckets,
		}, []string{"method", "status"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: "api",
			Name:      "retries_total",
			Help:      "Requests reissued by the pipeline, by retry kind",
		}, []string{"kind"}),
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Subsystem: "auth",
			Name:      "token_refreshes_total",
			Help:      "Refresh token exchanges sent to the backend, by outcome",
		}, []string{"outcome"}),
	}
}

func (p *Prometheus) ObserveRequest(method string, status int, duration time.Duration) {
	p.requestDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(duration.Seconds())
}

func (p *Prometheus) IncRetry(kind string) {
	p.retries.WithLabelValues(kind).Inc()
}

func (p *Prometheus) IncRefresh(outcome string) {
	p.refreshes.WithLabelValues(outcome).Inc()
}

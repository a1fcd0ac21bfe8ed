package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all event API metrics
const namespace = "event_api"

// Registry is the global Prometheus registry for all metrics
var Registry = prometheus.NewRegistry()

// AppInfo exposes build information as labels; the value is always 1.
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// Event listing metrics
var (
	// EventsListed records how many events a successful list response carried
	EventsListed = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "events_listed",
			Help:      "Number of events returned per list response",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// InvalidDateParameters counts rejected list requests by offending parameter
	InvalidDateParameters = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_date_parameters_total",
			Help:      "Total number of list requests rejected for an invalid date parameter",
		},
		[]string{"field"}, // field: start|end
	)

	// CacheLookups counts response cache lookups by result
	CacheLookups = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_cache_lookups_total",
			Help:      "Total number of response cache lookups",
		},
		[]string{"result"}, // result: hit|miss|error
	)
)

var initialized bool

// Init registers runtime collectors and sets version information. Calling it
// more than once only updates AppInfo.
func Init(version, commit, buildDate string) {
	if !initialized {
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		initialized = true
	}

	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}

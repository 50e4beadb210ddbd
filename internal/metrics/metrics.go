package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomserve",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	reservationCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roomserve",
			Name:      "reservation_created_total",
			Help:      "Count of confirmed reservations.",
		},
	)

	reservationRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomserve",
			Name:      "reservation_rejected_total",
			Help:      "Count of rejected booking proposals by reason.",
		},
		[]string{"reason"},
	)

	reservationCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roomserve",
			Name:      "reservation_cancelled_total",
			Help:      "Count of cancelled reservations.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, reservationCreated, reservationRejected, reservationCancelled)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncReservationCreated() {
	reservationCreated.Inc()
}

func IncReservationRejected(reason string) {
	reservationRejected.WithLabelValues(reason).Inc()
}

func IncReservationCancelled() {
	reservationCancelled.Inc()
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "picochat",
			Subsystem: "webchat",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// Login attempts by outcome
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "picochat",
			Subsystem: "webchat",
			Name:      "logins_total",
			Help:      "Login attempts by result",
		},
		[]string{"result"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "picochat",
			Subsystem: "webchat",
			Name:      "active_sessions",
			Help:      "Number of live chat sessions",
		},
	)

	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "picochat",
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Messages appended to chat surfaces",
		},
		[]string{"class"},
	)

	ConversationsSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "picochat",
			Subsystem: "history",
			Name:      "conversations_saved_total",
			Help:      "Conversations written to transcript stores",
		},
	)

	FilesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "picochat",
			Subsystem: "sidebar",
			Name:      "files_uploaded_total",
			Help:      "File attachments listed in the sidebar",
		},
	)
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

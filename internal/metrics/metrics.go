package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "millionaire_messages_total",
			Help: "Total number of handled player messages by game state before the transition.",
		},
		[]string{"state"},
	)

	GamesStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "millionaire_games_started_total",
		Help: "Total number of started games.",
	})

	AnswersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "millionaire_answers_total",
			Help: "Total number of checked answers by result (right, wrong, win).",
		},
		[]string{"result"},
	)

	HintsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "millionaire_hints_total",
			Help: "Total number of used hints by hint tag.",
		},
		[]string{"hint"},
	)

	DeliveryFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "millionaire_delivery_failures_total",
		Help: "Total number of replies that could not be delivered to Telegram.",
	})

	EventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "millionaire_events_dropped_total",
		Help: "Total number of analytics events dropped because the worker pool was full or closed.",
	})

	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "millionaire_telegram_updates_total",
			Help: "Total number of received Telegram updates by transport and outcome.",
		},
		[]string{"transport", "outcome"},
	)
)

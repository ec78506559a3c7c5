// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values of ModerationActions
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeDenied  = "denied"
)

var (
	ModerationActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valeriyya_moderation_actions_total",
			Help: "Moderation actions by action type and outcome",
		},
		[]string{"action", "outcome"},
	)

	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valeriyya_commands_total",
			Help: "Slash commands dispatched",
		},
		[]string{"command"},
	)

	GuildsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "valeriyya_guilds",
		Help: "Guilds the bot is in",
	})

	CasePublishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "valeriyya_case_publish_errors_total",
		Help: "Case events that could not be published to MQTT",
	})

	RemindersDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "valeriyya_reminders_delivered_total",
		Help: "Reminders sent to their channel",
	})

	MessagesStarred = promauto.NewCounter(prometheus.CounterOpts{
		Name: "valeriyya_messages_starred_total",
		Help: "Messages reposted to a starboard",
	})

	WelcomesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "valeriyya_welcomes_sent_total",
		Help: "Welcome messages sent to new members",
	})
)

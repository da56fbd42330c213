package services

import "github.com/prometheus/client_golang/prometheus"

var (
	questsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quests_completed_total",
			Help: "Quests completed, by difficulty",
		},
		[]string{"difficulty"},
	)
	levelUpsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "player_level_ups_total",
			Help: "Quest completions that raised a player's level",
		},
	)
	storePurchasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_purchases_total",
			Help: "Store purchase attempts, by outcome",
		},
		[]string{"outcome"},
	)
	soulsSpentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "store_souls_spent_total",
			Help: "Souls debited by successful purchases",
		},
	)
	equipTogglesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_equip_toggles_total",
			Help: "Equip toggles, by item type and resulting state",
		},
		[]string{"item_type", "equipped"},
	)
	notificationsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_dropped_total",
			Help: "Push notifications dropped because the queue was full",
		},
	)
)

// RegisterMetrics registers the domain collectors. Call once from main.go.
func RegisterMetrics() {
	prometheus.MustRegister(
		questsCompletedTotal,
		levelUpsTotal,
		storePurchasesTotal,
		soulsSpentTotal,
		equipTogglesTotal,
		notificationsDroppedTotal,
	)
}

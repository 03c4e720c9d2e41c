package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	collectTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "miner_collect_total",
		Help: "Collections that credited a positive amount",
	})
	collectedAmount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "miner_collected_amount_total",
		Help: "Sum of credited earnings",
	})
	unlockTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "miner_unlock_total",
			Help: "Successful floor unlocks",
		},
		[]string{"floor"},
	)
	stealTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "miner_steal_total",
			Help: "Steal attempts by outcome",
		},
		[]string{"outcome"},
	)
	storeRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "miner_store_retries_total",
			Help: "Guarded store writes retried after a conflict or transient error",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(collectTotal)
	prometheus.MustRegister(collectedAmount)
	prometheus.MustRegister(unlockTotal)
	prometheus.MustRegister(stealTotal)
	prometheus.MustRegister(storeRetries)
}

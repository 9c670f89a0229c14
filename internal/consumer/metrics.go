package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "product_consumer_messages_total",
		Help: "Messages handled by the product consumer, by result.",
	}, []string{"result"})

	stateGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "product_consumer_state",
		Help: "Current consumer state (0 starting, 1 subscribed, 2 receiving, 3 processing, 4 stopping, 5 stopped, 6 errored).",
	})

	lagGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "product_consumer_lag",
		Help: "Messages between the consumer position and the end of the partition.",
	})
)

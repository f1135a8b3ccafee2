package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PresetsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "patchpreset_presets_stored_total",
		Help: "Total number of store operations across all preset engines.",
	})

	PresetsRecalled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patchpreset_presets_recalled_total",
		Help: "Total number of recall attempts, labelled hit or miss.",
	}, []string{"result"})

	ControlMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patchpreset_control_messages_total",
		Help: "Control messages received, labelled by recognised kind.",
	}, []string{"kind"})

	AggregateEmissions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "patchpreset_aggregate_emissions_total",
		Help: "Total number of aggregate state maps published.",
	})

	NodeStateErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "patchpreset_node_state_errors_total",
		Help: "Per-node state read/write failures skipped during a batch.",
	}, []string{"op"})

	Subscriptions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "patchpreset_subscriptions",
		Help: "Live node change listeners held by preset engines.",
	})

	Resyncs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "patchpreset_resyncs_total",
		Help: "Inspected-set recomputations triggered by topology changes.",
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "patchpreset_host_queue_utilization_ratio",
		Help: "Current host operation queue utilization (0–1).",
	})
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChapterLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyloom_chapter_loads_total",
		Help: "Total number of chapter loads and reloads, labelled by outcome.",
	}, []string{"status"})

	NodesReconciled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyloom_nodes_reconciled_total",
		Help: "Nodes added, removed or kept by reconcile passes.",
	}, []string{"change"})

	ReconcileWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyloom_reconcile_warnings_total",
		Help: "Recoverable document problems found while reconciling, labelled by kind.",
	}, []string{"kind"})

	ReconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storyloom_reconcile_duration_ms",
		Help:    "Time spent parsing and reconciling one chapter document in milliseconds.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
	})

	TraversalSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyloom_traversal_steps_total",
		Help: "Traversal operations performed, labelled by kind.",
	}, []string{"kind"})

	TerminalsReached = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyloom_terminals_reached_total",
		Help: "Chapter traversals that reached a terminal, labelled by status.",
	}, []string{"status"})

	SaveOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storyloom_save_operations_total",
		Help: "Save and restore operations, labelled by operation and status.",
	}, []string{"op", "status"})

	StoryProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storyloom_story_progress_percent",
		Help: "Current estimated story completion (0–100).",
	})
)

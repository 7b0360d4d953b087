// Package metrics provides Prometheus metric collection for Streako.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metric recording interface used by the scheduler and the
// flow engine.
type Recorder interface {
	RecordReminderFired()
	RecordReminderSkipped()
	RecordReminderSendFailure()
	RecordFlowCompleted(flow string)
	RecordFlowAborted(flow string)
	RecordUnknownAction()
}

// Collector implements Recorder backed by Prometheus counters.
type Collector struct {
	remindersFired   prometheus.Counter
	remindersSkipped prometheus.Counter
	reminderFailures prometheus.Counter
	flowsCompleted   *prometheus.CounterVec
	flowsAborted     *prometheus.CounterVec
	unknownActions   prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		remindersFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streako_reminders_fired_total",
			Help: "Total reminder jobs that fired and delivered a notification.",
		}),
		remindersSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streako_reminders_skipped_total",
			Help: "Total reminder occurrences skipped past the misfire grace window.",
		}),
		reminderFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streako_reminder_send_failures_total",
			Help: "Total reminder notifications that failed to send.",
		}),
		flowsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streako_flows_completed_total",
			Help: "Total dialog flows that reached their terminal commit.",
		}, []string{"flow"}),
		flowsAborted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streako_flows_aborted_total",
			Help: "Total dialog flows aborted on step validation failure.",
		}, []string{"flow"}),
		unknownActions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "streako_unknown_actions_total",
			Help: "Total action callbacks that did not match a known action.",
		}),
	}

	reg.MustRegister(
		c.remindersFired,
		c.remindersSkipped,
		c.reminderFailures,
		c.flowsCompleted,
		c.flowsAborted,
		c.unknownActions,
	)

	return c
}

// RecordReminderFired counts a delivered reminder.
func (c *Collector) RecordReminderFired() { c.remindersFired.Inc() }

// RecordReminderSkipped counts a misfired occurrence that was skipped.
func (c *Collector) RecordReminderSkipped() { c.remindersSkipped.Inc() }

// RecordReminderSendFailure counts a failed reminder delivery.
func (c *Collector) RecordReminderSendFailure() { c.reminderFailures.Inc() }

// RecordFlowCompleted counts a completed flow by type.
func (c *Collector) RecordFlowCompleted(flow string) {
	c.flowsCompleted.WithLabelValues(flow).Inc()
}

// RecordFlowAborted counts an aborted flow by type.
func (c *Collector) RecordFlowAborted(flow string) {
	c.flowsAborted.WithLabelValues(flow).Inc()
}

// RecordUnknownAction counts an unrecognized action callback.
func (c *Collector) RecordUnknownAction() { c.unknownActions.Inc() }

// Handler returns an HTTP handler serving Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop is a Recorder that discards every observation. Used in tests and when
// metrics are disabled.
type Nop struct{}

func (Nop) RecordReminderFired()       {}
func (Nop) RecordReminderSkipped()     {}
func (Nop) RecordReminderSendFailure() {}
func (Nop) RecordFlowCompleted(string) {}
func (Nop) RecordFlowAborted(string)   {}
func (Nop) RecordUnknownAction()       {}

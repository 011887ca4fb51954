package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/temirov/reposync/internal/execshell"
)

const (
	metricsNamespaceConstant        = "reposync"
	workflowRunsMetricNameConstant  = "workflow_runs_total"
	workflowRunsMetricHelpConstant  = "Count of deploy and update workflow runs"
	toolDurationMetricNameConstant  = "tool_duration_seconds"
	toolDurationMetricHelpConstant  = "Run time of external tools launched by workflows"
	actionLabelNameConstant         = "action"
	outcomeLabelNameConstant        = "outcome"
	toolLabelNameConstant           = "tool"
	successLabelNameConstant        = "success"
	executionFailedDurationConstant = 0
)

// Workflow outcomes recorded by RecordWorkflow.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// WorkflowRecorder records the outcome of a workflow run.
type WorkflowRecorder interface {
	RecordWorkflow(action string, outcome string)
}

// Recorder implements WorkflowRecorder and execshell.CommandEventObserver. A nil *Recorder records nothing.
type Recorder struct {
	workflowRuns *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
}

// NewRecorder creates the collectors and registers them on registerer.
func NewRecorder(registerer prometheus.Registerer) (*Recorder, error) {
	recorder := &Recorder{
		workflowRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Name:      workflowRunsMetricNameConstant,
			Help:      workflowRunsMetricHelpConstant,
		}, []string{actionLabelNameConstant, outcomeLabelNameConstant}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespaceConstant,
			Name:      toolDurationMetricNameConstant,
			Help:      toolDurationMetricHelpConstant,
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{toolLabelNameConstant, successLabelNameConstant}),
	}

	for _, collector := range []prometheus.Collector{recorder.workflowRuns, recorder.toolDuration} {
		if registrationError := registerer.Register(collector); registrationError != nil {
			return nil, registrationError
		}
	}
	return recorder, nil
}

// RecordWorkflow counts one workflow run.
func (recorder *Recorder) RecordWorkflow(action string, outcome string) {
	if recorder == nil {
		return
	}
	recorder.workflowRuns.WithLabelValues(action, outcome).Inc()
}

// CommandStarted is a no-op; durations are recorded on completion.
func (recorder *Recorder) CommandStarted(execshell.ShellCommand) {}

// CommandCompleted observes the run time of a command that exited.
func (recorder *Recorder) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult, duration time.Duration) {
	if recorder == nil {
		return
	}
	recorder.toolDuration.WithLabelValues(string(command.Name), strconv.FormatBool(result.ExitCode == 0)).Observe(duration.Seconds())
}

// CommandExecutionFailed records a command that never ran with a zero duration.
func (recorder *Recorder) CommandExecutionFailed(command execshell.ShellCommand, _ error) {
	if recorder == nil {
		return
	}
	recorder.toolDuration.WithLabelValues(string(command.Name), strconv.FormatBool(false)).Observe(executionFailedDurationConstant)
}

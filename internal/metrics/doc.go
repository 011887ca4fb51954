// Package metrics exposes Prometheus counters for workflow runs and histograms
// for the external tools the workflows launch.
//
// Available metrics:
//   - reposync_workflow_runs_total (labels: action, outcome)
//     Counter incremented once per deploy or update workflow.
//   - reposync_tool_duration_seconds (labels: tool, success)
//     Histogram of git, r10k and librarian-puppet run times.
package metrics

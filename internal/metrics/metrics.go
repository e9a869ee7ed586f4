// Package metrics defines the observability hooks of the checkout flow.
package metrics

import "time"

// Metrics collects checkout attempt metrics.
// Implementations can use Prometheus or any other backend.
type Metrics interface {
	// Attempt metrics
	AttemptStarted()
	AttemptSettled(disposition string, duration time.Duration)
	AttemptCancelled(phase string)

	// Collaborator metrics
	StageCompleted(stage, outcome string, duration time.Duration)
	StaleCallback(stage string)
	ContractViolation(collaborator string)
}

// Noop discards every measurement.
type Noop struct{}

var _ Metrics = Noop{}

func (Noop) AttemptStarted() {}
func (Noop) AttemptSettled(string, time.Duration) {}
func (Noop) AttemptCancelled(string) {}
func (Noop) StageCompleted(string, string, time.Duration) {}
func (Noop) StaleCallback(string) {}
func (Noop) ContractViolation(string) {}

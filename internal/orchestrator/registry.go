// Package orchestrator is the event-driven workflow engine: it binds named
// trigger events to step functions, runs them with bounded retry, and
// emits follow-on events to chain workflows together.
package orchestrator

import (
	"context"

	"github.com/pressmill/pressmill/internal/domain"
)

// StepResult is the tagged outcome every step function returns. Expected
// failures are classified by Code, never raised as errors; step bodies
// convert component errors into this shape before the dispatcher decides
// retry versus terminal failure.
type StepResult struct {
	OK       bool
	FollowOn []*domain.Event
	Code     domain.ErrorCode
	Message  string
}

// StepFunc is the unit of orchestration logic bound to one trigger event.
// Step functions must be idempotent: the same event may be redelivered.
type StepFunc func(ctx context.Context, event *domain.Event) *StepResult

func stepOK(followOn ...*domain.Event) *StepResult {
	return &StepResult{OK: true, FollowOn: followOn}
}

func stepFail(code domain.ErrorCode, msg string) *StepResult {
	return &StepResult{OK: false, Code: code, Message: msg}
}

// FailureHook runs when a job fails terminally, after retries are
// exhausted. Hooks surface the failure as a status change on the owning
// domain entity so downstream consumers observe domain state, never
// transport detail.
type FailureHook func(ctx context.Context, event *domain.Event, result *StepResult)

// Step is one registered binding of event name to step function.
type Step struct {
	Kind      domain.JobKind
	Run       StepFunc
	OnFailure FailureHook
}

// Registry maps event names to step functions. It is built once at process
// start and passed to the dispatcher; there is no global dispatch table.
type Registry struct {
	steps map[string]Step
}

// NewRegistry creates an empty step registry.
func NewRegistry() *Registry {
	return &Registry{steps: make(map[string]Step)}
}

// Register binds an event name to a step function. Registering the same
// name twice replaces the binding; registration happens only during wiring.
func (r *Registry) Register(eventName string, kind domain.JobKind, fn StepFunc) {
	r.steps[eventName] = Step{Kind: kind, Run: fn}
}

// RegisterWithFailure additionally binds a hook invoked on terminal failure.
func (r *Registry) RegisterWithFailure(eventName string, kind domain.JobKind, fn StepFunc, onFail FailureHook) {
	r.steps[eventName] = Step{Kind: kind, Run: fn, OnFailure: onFail}
}

// Lookup returns the step bound to an event name.
func (r *Registry) Lookup(eventName string) (Step, bool) {
	step, ok := r.steps[eventName]
	return step, ok
}

// EventNames returns every registered event name, for logging at startup.
func (r *Registry) EventNames() []string {
	names := make([]string, 0, len(r.steps))
	for name := range r.steps {
		names = append(names, name)
	}
	return names
}

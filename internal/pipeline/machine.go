// Package pipeline runs a specialist's fixed tool sequence as a small
// explicit state machine.
package pipeline

import (
	"context"
	"fmt"
	"strings"
)

type State string

const (
	StateExtractIntent State = "extract-intent"
	StateFetchContext  State = "fetch-context"
	StateDecideBranch  State = "decide-branch"
	StateAct           State = "act"
	StateNotify        State = "notify"
	StateDone          State = "done"
)

const DefaultMaxTransitions = 32

// Step does the work of one state and names the next one.
type Step[S any] func(ctx context.Context, s *S) (State, error)

type Machine[S any] struct {
	name           string
	start          State
	steps          map[State]Step[S]
	maxTransitions int
}

func New[S any](name string, start State) *Machine[S] {
	return &Machine[S]{
		name:           name,
		start:          start,
		steps:          make(map[State]Step[S]),
		maxTransitions: DefaultMaxTransitions,
	}
}

func (m *Machine[S]) On(state State, step Step[S]) *Machine[S] {
	m.steps[state] = step
	return m
}

func (m *Machine[S]) Name() string { return m.name }

// Trace lists the states visited by one run, in order.
type Trace []State

func (t Trace) String() string {
	parts := make([]string, len(t))
	for i, s := range t {
		parts[i] = string(s)
	}
	return strings.Join(parts, " -> ")
}

func (t Trace) Visited(s State) bool {
	for _, v := range t {
		if v == s {
			return true
		}
	}
	return false
}

type StageError struct {
	State State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Run drives s from the start state to StateDone. The returned trace always
// includes the state that failed.
func (m *Machine[S]) Run(ctx context.Context, s *S) (Trace, error) {
	var trace Trace
	state := m.start

	for transitions := 0; ; transitions++ {
		trace = append(trace, state)
		if state == StateDone {
			return trace, nil
		}
		if transitions >= m.maxTransitions {
			return trace, &StageError{State: state, Err: fmt.Errorf("%s exceeded %d transitions", m.name, m.maxTransitions)}
		}
		if err := ctx.Err(); err != nil {
			return trace, &StageError{State: state, Err: err}
		}

		step, ok := m.steps[state]
		if !ok {
			return trace, &StageError{State: state, Err: fmt.Errorf("%s has no step for state", m.name)}
		}

		next, err := step(ctx, s)
		if err != nil {
			return trace, &StageError{State: state, Err: err}
		}
		state = next
	}
}

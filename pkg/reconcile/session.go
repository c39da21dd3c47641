package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/siddontang/loggers"
)

// Outcome is what a session did with one entity's candidates.
type Outcome struct {
	RowSkipped   bool
	Applied      int
	Skipped      int
	Abandoned    int
	Failed       int
	RowsAffected int64
}

// Session walks the change candidates of one entity and turns
// operator decisions into updates. It is a state machine:
//
//	idle -> awaitingRowDecision -> perFieldLoop -> done
//
// with the shortcuts idle -> done (nothing to resolve) and
// awaitingRowDecision -> done (the operator skipped the row).
// Updates already applied are never undone, even if the row is
// later abandoned.
type Session struct {
	entityID   string
	candidates []Candidate
	next       int // index of the candidate awaiting a decision
	state      State
	applier    Applier
	logger     loggers.Advanced
	outcome    Outcome
}

func NewSession(entityID string, candidates []Candidate, applier Applier, logger loggers.Advanced) *Session {
	return &Session{
		entityID:   entityID,
		candidates: candidates,
		state:      StateIdle,
		applier:    applier,
		logger:     logger,
	}
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Outcome() Outcome {
	return s.outcome
}

// Current returns the candidate awaiting a field decision.
func (s *Session) Current() (Candidate, bool) {
	if s.state != StatePerFieldLoop || s.next >= len(s.candidates) {
		return Candidate{}, false
	}
	return s.candidates[s.next], true
}

func (s *Session) transition(to State) error {
	if !canTransition(s.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
	}
	s.state = to
	return nil
}

// Start leaves the idle state. A session with no candidates
// goes straight to done and never asks the operator anything.
func (s *Session) Start() error {
	if s.state != StateIdle {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, s.state)
	}
	if len(s.candidates) == 0 {
		return s.transition(StateDone)
	}
	return s.transition(StateAwaitingRowDecision)
}

// DecideRow applies the operator's choice to review or skip the whole row.
func (s *Session) DecideRow(d RowDecision) error {
	if s.state != StateAwaitingRowDecision {
		return fmt.Errorf("%w: row decision in %s", ErrInvalidTransition, s.state)
	}
	switch d {
	case ReviewRow:
		return s.transition(StatePerFieldLoop)
	case SkipRow:
		s.outcome.RowSkipped = true
		s.outcome.Skipped += len(s.candidates)
		s.next = len(s.candidates)
		return s.transition(StateDone)
	}
	return fmt.Errorf("%w: row decision %d", ErrOperatorInput, d)
}

// DecideField applies the operator's decision to the current candidate.
// A failed update is logged and counted; the session still moves on.
// A cancelled context is returned as is and nothing is counted.
func (s *Session) DecideField(ctx context.Context, d Decision) error {
	c, ok := s.Current()
	if !ok {
		return fmt.Errorf("%w: field decision in %s", ErrInvalidTransition, s.state)
	}
	switch d {
	case Apply:
		if err := ctx.Err(); err != nil {
			return err
		}
		affected, err := s.applier.Apply(ctx, s.entityID, c.Field, c.Proposed)
		if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			// Cancelled mid-update: the candidate stays current.
			return err
		}
		if err != nil {
			s.outcome.Failed++
			s.logger.Errorf("update failed: entity=%s column=%s: %v", s.entityID, c.Field, err)
		} else {
			s.outcome.Applied++
			s.outcome.RowsAffected += affected
		}
		return s.advance()
	case Skip:
		s.outcome.Skipped++
		return s.advance()
	case AbandonRow:
		s.outcome.Abandoned += len(s.candidates) - s.next
		s.next = len(s.candidates)
		return s.transition(StateDone)
	}
	return fmt.Errorf("%w: field decision %d", ErrOperatorInput, d)
}

func (s *Session) advance() error {
	s.next++
	if s.next >= len(s.candidates) {
		return s.transition(StateDone)
	}
	return s.transition(StatePerFieldLoop)
}

// Run drives the session to done, asking op for every decision.
// Unrecognized input is logged and asked again. Any other operator
// error (for example closed input) ends the session and is returned.
func (s *Session) Run(ctx context.Context, op Operator) (Outcome, error) {
	if err := s.Start(); err != nil {
		return s.outcome, err
	}
	for s.state != StateDone {
		if err := ctx.Err(); err != nil {
			return s.outcome, err
		}
		var err error
		switch s.state { //nolint:exhaustive
		case StateAwaitingRowDecision:
			var d RowDecision
			if d, err = op.DecideRow(ctx, s.entityID, s.candidates); err == nil {
				err = s.DecideRow(d)
			}
		case StatePerFieldLoop:
			c, _ := s.Current()
			var d Decision
			if d, err = op.DecideField(ctx, s.entityID, c); err == nil {
				err = s.DecideField(ctx, d)
			}
		default:
			return s.outcome, fmt.Errorf("%w: unexpected state %s", ErrInvalidTransition, s.state)
		}
		if errors.Is(err, ErrOperatorInput) {
			s.logger.Warnf("%v, asking again", err)
			continue
		}
		if err != nil {
			return s.outcome, err
		}
	}
	return s.outcome, nil
}

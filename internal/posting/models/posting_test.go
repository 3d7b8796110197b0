package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	dErrors "lofo/pkg/domain-errors"
)

func validDetails() Details {
	return Details{
		Category:    "electronics",
		Description: "black wallet with student card inside",
		Location:    "library second floor",
		EventTime:   time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC),
	}
}

func TestNewPosting(t *testing.T) {
	now := time.Now()
	p, err := NewPosting(uuid.New(), uuid.New(), KindFound, validDetails(), StatusActive, now)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, p.Status)
	assert.Equal(t, KindFound, p.Kind)
	assert.Equal(t, now, p.CreatedAt)
}

func TestNewPostingInvariants(t *testing.T) {
	now := time.Now()
	reporter := uuid.New()

	tests := []struct {
		name    string
		mutate  func(*Details)
		kind    Kind
		initial Status
	}{
		{name: "missing category", mutate: func(d *Details) { d.Category = "" }, kind: KindFound, initial: StatusActive},
		{name: "missing description", mutate: func(d *Details) { d.Description = "" }, kind: KindFound, initial: StatusActive},
		{name: "missing location", mutate: func(d *Details) { d.Location = "" }, kind: KindFound, initial: StatusActive},
		{name: "zero event time", mutate: func(d *Details) { d.EventTime = time.Time{} }, kind: KindFound, initial: StatusActive},
		{name: "bad kind", mutate: func(*Details) {}, kind: Kind("stolen"), initial: StatusActive},
		{name: "bad initial status", mutate: func(*Details) {}, kind: KindLost, initial: StatusClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details := validDetails()
			tt.mutate(&details)
			_, err := NewPosting(uuid.New(), reporter, tt.kind, details, tt.initial, now)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("lost")
	require.NoError(t, err)
	assert.Equal(t, KindLost, k)

	_, err = ParseKind("misplaced")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestTerminalStatesAdmitNoTransitions(t *testing.T) {
	all := []Status{StatusPendingAdmin, StatusActive, StatusAwaitingValidation, StatusClosed, StatusRejectedByAdmin}
	for _, from := range all {
		for _, to := range all {
			if from.Terminal() {
				assert.False(t, CanTransition(from, to), "%s -> %s must be illegal", from, to)
			}
		}
	}
}

// TestTransitionWalkNeverEscapesTerminal drives random walks through the
// state machine and checks that every reachable path ends in a terminal state
// or a state with legal moves, and that no walk ever leaves a terminal state.
func TestTransitionWalkNeverEscapesTerminal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		state := rapid.SampledFrom([]Status{StatusPendingAdmin, StatusActive}).Draw(t, "initial")
		steps := rapid.IntRange(0, 12).Draw(t, "steps")

		for i := 0; i < steps; i++ {
			next := transitions[state]
			if len(next) == 0 {
				if !state.Terminal() {
					t.Fatalf("non-terminal state %s has no transitions", state)
				}
				break
			}
			state = rapid.SampledFrom(next).Draw(t, "next")
		}

		if state.Terminal() {
			for _, to := range []Status{StatusPendingAdmin, StatusActive, StatusAwaitingValidation, StatusClosed, StatusRejectedByAdmin} {
				if CanTransition(state, to) {
					t.Fatalf("terminal state %s allows transition to %s", state, to)
				}
			}
		}
	})
}

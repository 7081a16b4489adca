package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampDifficulty(t *testing.T) {
	cases := map[float64]int{
		-3:  1,
		0:   1,
		1:   1,
		2.4: 2,
		2.5: 3,
		5:   5,
		6:   5,
		10:  5,
	}
	for in, want := range cases {
		assert.Equal(t, want, ClampDifficulty(in), "ClampDifficulty(%v)", in)
	}
	assert.Equal(t, DefaultDifficulty, ClampDifficulty(math.NaN()))
	assert.Equal(t, MaxDifficulty, ClampDifficulty(math.Inf(1)))
}

func TestCategories(t *testing.T) {
	all := Categories()
	require.Len(t, all, 5)
	assert.Equal(t, RequirementConfirmation, all[0].ID)
	assert.Equal(t, ConsensusBuilding, all[4].ID)

	// callers get a copy
	all[0].NameJa = "changed"
	assert.Equal(t, "要件確認", Categories()[0].NameJa)

	info, ok := LookupCategory(AmbiguityStructuring)
	assert.True(t, ok)
	assert.Equal(t, "曖昧さの構造化", info.NameJa)

	_, ok = LookupCategory("sales_pitch")
	assert.False(t, ok)
}

func TestSessionState_Transition(t *testing.T) {
	at := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

	s := &SessionState{SessionID: "s1", Status: StatusInProgress}
	require.NoError(t, s.Transition(StatusCompleted, at))
	assert.Equal(t, StatusCompleted, s.Status)
	assert.Equal(t, at, *s.CompletedAt)

	// nothing leaves completed
	assert.ErrorIs(t, s.Transition(StatusAbandoned, at), ErrInvalidTransition)

	s = &SessionState{SessionID: "s2", Status: StatusInProgress}
	assert.ErrorIs(t, s.Transition(StatusInProgress, at), ErrInvalidTransition)
	require.NoError(t, s.Transition(StatusAbandoned, at))
	assert.ErrorIs(t, s.Transition(StatusCompleted, at), ErrInvalidTransition)
}

func TestEmotionValid(t *testing.T) {
	for _, e := range Emotions {
		assert.True(t, e.Valid())
	}
	assert.False(t, Emotion("angry").Valid())
	assert.False(t, Emotion("").Valid())
}

func TestCountRole(t *testing.T) {
	history := []Message{{Role: SystemRole}, {Role: ClientRole}, {Role: UserRole}, {Role: ClientRole}, {Role: UserRole}}
	assert.Equal(t, 2, CountRole(history, UserRole))
	assert.Equal(t, 0, CountRole(nil, UserRole))
}

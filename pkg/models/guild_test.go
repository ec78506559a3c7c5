package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetUserHistoryCreatesMissingRecord(t *testing.T) {
	doc := NewGuildDocument("1")

	h := doc.GetUserHistory("42")
	require.NotNil(t, h)
	assert.Equal(t, "42", h.ID)
	assert.Len(t, doc.History, 1)

	h.Ban = 2
	assert.Equal(t, uint16(2), doc.GetUserHistory("42").Ban)
	assert.Len(t, doc.History, 1)
}

func TestHistoryIncrement(t *testing.T) {
	tests := []struct {
		action ActionType
		want   History
	}{
		{ActionBan, History{Ban: 1}},
		{ActionKick, History{Kick: 1}},
		{ActionMute, History{Mute: 1}},
		{ActionUnban, History{}},
	}

	for _, tt := range tests {
		t.Run(tt.action.String(), func(t *testing.T) {
			var h History
			h.Increment(tt.action)
			assert.Equal(t, tt.want, h)
			assert.Equal(t, tt.want.Count(tt.action), h.Count(tt.action))
		})
	}
}

func TestAddAndDeleteCase(t *testing.T) {
	doc := NewGuildDocument("1")
	doc.CasesNumber = 5

	assert.Equal(t, uint32(6), doc.NextCaseNumber())
	doc.AddCase(Case{ID: 6, Action: ActionBan, TargetID: "42"})
	assert.Equal(t, uint32(6), doc.CasesNumber)

	c, ok := doc.FindCase(6)
	require.True(t, ok)
	assert.Equal(t, ActionBan, c.Action)
	assert.Len(t, doc.CasesFor("42"), 1)

	require.NoError(t, doc.DeleteCase(6))
	assert.ErrorIs(t, doc.DeleteCase(6), ErrCaseNotFound)
	assert.Equal(t, uint32(6), doc.CasesNumber, "deleting must not rewind the counter")
}

func TestUpdateCaseReasonAndReference(t *testing.T) {
	doc := NewGuildDocument("1")
	doc.AddCase(Case{ID: 1, Reason: "old"})
	doc.AddCase(Case{ID: 2})

	c, err := doc.UpdateCaseReason(1, "new")
	require.NoError(t, err)
	assert.Equal(t, "new", c.Reason)

	_, err = doc.UpdateCaseReason(9, "x")
	assert.ErrorIs(t, err, ErrCaseNotFound)

	c, err = doc.UpdateCaseReference(2, 1)
	require.NoError(t, err)
	require.NotNil(t, c.Reference)
	assert.Equal(t, uint32(1), *c.Reference)

	_, err = doc.UpdateCaseReference(2, 2)
	assert.ErrorIs(t, err, ErrSelfReference)

	_, err = doc.UpdateCaseReference(2, 7)
	assert.ErrorIs(t, err, ErrCaseNotFound)
	assert.ErrorIs(t, err, ErrReferenceNotFound)

	_, err = doc.UpdateCaseReference(8, 1)
	assert.ErrorIs(t, err, ErrCaseNotFound)
	assert.NotErrorIs(t, err, ErrReferenceNotFound)
}

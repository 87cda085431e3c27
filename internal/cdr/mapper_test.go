package cdr

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"crm-telephony/internal/calls"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver map[string]int64

func (s stubResolver) Resolve(_ context.Context, raw string) *int64 {
	if id, ok := s[raw]; ok {
		return &id
	}
	return nil
}

func newTestMapper(res EmployeeResolver) *Mapper {
	return NewMapper(DefaultRules(), res, MapperOptions{
		Tenant:               "acme",
		RecordingURLTemplate: "https://pbx.example/api?info=recording&id={id}&tenant={tenant}",
		NewID:                func() string { return "local-1" },
	})
}

func TestMapper_Map(t *testing.T) {
	m := newTestMapper(stubResolver{"101": 7})
	rec := RawRecord{
		CallID:      "c-1",
		Start:       "2024-03-01 10:15:00",
		CallerID:    `"Reception" <101>`,
		Source:      "101@pbx",
		Destination: "0501234567-acme",
		Duration:    65,
		BillSec:     60,
		Disposition: "ANSWERED",
		Context:     "from-internal",
		UniqueID:    "1700000000.1",
	}

	e, err := m.Map(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "local-1", e.ID)
	assert.Equal(t, "c-1", e.ExternalCallID)
	assert.Equal(t, "2024-03-01", e.CallDate)
	assert.Equal(t, "10:15:00", e.CallTime)
	assert.Equal(t, "101", e.Source)
	assert.Equal(t, "0501234567", e.Destination)
	assert.Equal(t, calls.DirectionOutbound, e.Direction)
	assert.Equal(t, calls.StatusAnswered, e.Status)
	assert.Equal(t, 65, e.DurationSeconds)
	assert.Equal(t, "1700000000.1", e.ExternalUniqueID)
	assert.Equal(t, "https://pbx.example/api?info=recording&id=1700000000.1&tenant=acme", e.RecordingURL)
	require.NotNil(t, e.EmployeeID)
	assert.Equal(t, int64(7), *e.EmployeeID)
	require.NotNil(t, e.CallerID)
	assert.Equal(t, int64(101), *e.CallerID)

	var snap map[string]any
	require.NoError(t, json.Unmarshal(e.Raw, &snap))
	assert.Equal(t, "101@pbx", snap["src"])
}

func TestMapper_UnresolvedEmployeeDoesNotBlock(t *testing.T) {
	m := newTestMapper(stubResolver{})
	e, err := m.Map(context.Background(), RawRecord{Start: "2024-03-01T08:00:00", Source: "0501234567", Destination: "102", UniqueID: "u", Disposition: "NO ANSWER"})
	require.NoError(t, err)
	assert.Nil(t, e.EmployeeID)
	assert.Equal(t, calls.DirectionInbound, e.Direction)
	assert.Equal(t, calls.StatusNoAnswer, e.Status)
}

func TestMapper_Errors(t *testing.T) {
	m := newTestMapper(nil)

	_, err := m.Map(context.Background(), RawRecord{Start: "2024-03-01 10:15:00"})
	assert.ErrorIs(t, err, ErrMissingUniqueID)

	_, err = m.Map(context.Background(), RawRecord{Start: "yesterday", UniqueID: "u"})
	assert.True(t, errors.Is(err, ErrBadTimestamp))
}

func TestMapper_DefaultIDIsTimeOrdered(t *testing.T) {
	m := NewMapper(DefaultRules(), nil, MapperOptions{})
	a, err := m.Map(context.Background(), RawRecord{Start: "2024-03-01 10:15:00", UniqueID: "a"})
	require.NoError(t, err)
	b, err := m.Map(context.Background(), RawRecord{Start: "2024-03-01 10:15:00", UniqueID: "b"})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, a.ID, 36)
	assert.Empty(t, a.RecordingURL)
}

func TestCallerID(t *testing.T) {
	got := callerID("not a number", "0501234567")
	require.NotNil(t, got)
	assert.Equal(t, int64(501234567), *got)
	assert.Nil(t, callerID("", "anonymous"))
}

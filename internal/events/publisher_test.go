package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"crm-telephony/internal/calls"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCallLogged_JSONShape(t *testing.T) {
	emp := int64(7)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("IST", 2*3600))
	ev := NewCallLogged(calls.Entry{
		ID:               "id-1",
		ExternalUniqueID: "1700000000.1",
		Direction:        calls.DirectionInbound,
		Status:           calls.StatusAnswered,
		EmployeeID:       &emp,
	}, "webhook", at)

	b, err := json.Marshal(ev)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "1700000000.1", m["external_unique_id"])
	assert.Equal(t, "inbound", m["direction"])
	assert.Equal(t, "webhook", m["origin"])
	assert.Equal(t, float64(7), m["employee_id"])
	assert.Equal(t, "2024-03-01T08:00:00Z", m["occurred_at"])
}

func TestMemoryAndNoop(t *testing.T) {
	var m Memory
	require.NoError(t, m.PublishCallLogged(context.Background(), CallLogged{ID: "a"}))
	assert.Len(t, m.Events(), 1)

	assert.NoError(t, Noop{}.PublishCallLogged(context.Background(), CallLogged{}))
	assert.NoError(t, Noop{}.Close())
}

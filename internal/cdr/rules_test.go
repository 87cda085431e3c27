package cdr

import (
	"os"
	"path/filepath"
	"testing"

	"crm-telephony/internal/calls"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRules_StatusTieBreak(t *testing.T) {
	r := DefaultRules()
	cases := map[string]calls.Status{
		"NO ANSWER":   calls.StatusNoAnswer,
		"NOANSWER":    calls.StatusNoAnswer,
		"no_answer":   calls.StatusNoAnswer,
		"Answered":    calls.StatusAnswered,
		"ANSWER":      calls.StatusAnswered,
		"BUSY":        calls.StatusBusy,
		"FAILED":      calls.StatusFailed,
		"CONGESTION":  calls.StatusFailed,
		"CANCEL":      calls.StatusCancelled,
		"cancelled":   calls.StatusCancelled,
		"redirected":  calls.StatusRedirected,
		"":            calls.StatusUnknown,
		"something":   calls.StatusUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, r.Status(in), "disposition %q", in)
	}
}

func TestRules_Direction(t *testing.T) {
	r := DefaultRules()
	assert.Equal(t, calls.DirectionInbound, r.Direction("from-pstn", "0501234567", "101"))
	assert.Equal(t, calls.DirectionInbound, r.Direction(" FROM-TRUNK ", "", ""))
	assert.Equal(t, calls.DirectionQueue, r.Direction("ext-queues", "101", "0501234567"))
	assert.Equal(t, calls.DirectionVoicemail, r.Direction("ext-vm", "", ""))
	assert.Equal(t, calls.DirectionConference, r.Direction("ext-meetme", "", ""))

	// unrecognized code falls back to the extension heuristic
	assert.Equal(t, calls.DirectionOutbound, r.Direction("custom-ctx", "101", "0501234567"))
	assert.Equal(t, calls.DirectionInbound, r.Direction("custom-ctx", "0501234567", "1001"))
	assert.Equal(t, calls.DirectionUnknown, r.Direction("custom-ctx", "0501234567", "0509999999"))
	assert.Equal(t, calls.DirectionUnknown, r.Direction("", "10", "12345"))
}

func TestRules_Clean(t *testing.T) {
	r := DefaultRules()
	assert.Equal(t, "101", r.Clean(" 101@pbx ", "acme"))
	assert.Equal(t, "101", r.Clean("101-acme@pbx", "acme"))
	assert.Equal(t, "0501234567", r.Clean("0501234567@TRUNK", ""))
	assert.Equal(t, "101-other", r.Clean("101-other", "acme"))
	assert.Equal(t, "", r.Clean("", "acme"))
}

func TestLoadRules_Override(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
strip_suffixes: ["@edge"]
context_directions:
  custom-in: inbound
extension_pattern: '^\d{2,5}$'
`), 0o600))

	r, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, "55", r.Clean("55@edge", ""))
	assert.Equal(t, "55@pbx", r.Clean("55@pbx", ""))
	assert.Equal(t, calls.DirectionInbound, r.Direction("custom-in", "", ""))
	assert.Equal(t, calls.DirectionInbound, r.Direction("from-pstn", "", ""), "defaults are merged")
	assert.Equal(t, calls.DirectionOutbound, r.Direction("x", "55", ""))
	assert.Equal(t, calls.StatusNoAnswer, r.Status("NO ANSWER"))
}

func TestLoadRules_RejectsUnknownEnum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("context_directions:\n  x: sideways\n"), 0o600))

	_, err := LoadRules(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sideways")
}

func TestLoadRules_EmptyPathIsDefault(t *testing.T) {
	r, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRules().StripSuffixes, r.StripSuffixes)
}

func TestDefaultRules_ExtensionPatternIsReady(t *testing.T) {
	r := DefaultRules()
	require.NotNil(t, r.extension)
	assert.Equal(t, `^\d{3,4}$`, r.ExtensionPattern)
	assert.True(t, r.extension.MatchString("1001"))

	var zero Rules
	assert.Equal(t, calls.DirectionOutbound, zero.Direction("", "101", "0501234567"), "zero Rules fall back to the default extension pattern")
}

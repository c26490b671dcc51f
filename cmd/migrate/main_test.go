package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMigrator struct {
	calls []string
	to    uint
	force int
}

func (m *recordingMigrator) Up() error   { m.calls = append(m.calls, "up"); return nil }
func (m *recordingMigrator) Down() error { m.calls = append(m.calls, "down"); return nil }
func (m *recordingMigrator) To(v uint) error {
	m.calls = append(m.calls, "to")
	m.to = v
	return nil
}
func (m *recordingMigrator) Force(v int) error {
	m.calls = append(m.calls, "force")
	m.force = v
	return nil
}

func TestParseArgs_Defaults(t *testing.T) {
	opts, err := parseArgs(nil, io.Discard, "./migrations")
	require.NoError(t, err)
	assert.Equal(t, "up", opts.direction)
	assert.Equal(t, "./migrations", opts.dir)
}

func TestParseArgs_ToNeedsVersion(t *testing.T) {
	_, err := parseArgs([]string{"--direction", "to"}, io.Discard, "./migrations")
	assert.ErrorIs(t, err, errUsage)

	opts, err := parseArgs([]string{"--direction", "to", "--version", "0"}, io.Discard, "./migrations")
	require.NoError(t, err)
	assert.Equal(t, uint(0), opts.version)
}

func TestParseArgs_Rejects(t *testing.T) {
	_, err := parseArgs([]string{"--direction", "sideways"}, io.Discard, "")
	assert.ErrorIs(t, err, errUsage)

	_, err = parseArgs([]string{"--direction", "force"}, io.Discard, "")
	assert.ErrorIs(t, err, errUsage)
}

func TestApply_Dispatch(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{nil, "up"},
		{[]string{"--direction", "down"}, "down"},
		{[]string{"--direction", "to", "--version", "1"}, "to"},
		{[]string{"--direction", "force", "--force-version", "2"}, "force"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			opts, err := parseArgs(tt.args, io.Discard, "./migrations")
			require.NoError(t, err)

			m := &recordingMigrator{}
			require.NoError(t, apply(m, opts))
			assert.Equal(t, []string{tt.want}, m.calls)
		})
	}

	m := &recordingMigrator{}
	opts, _ := parseArgs([]string{"--direction", "to", "--version", "1"}, io.Discard, "")
	require.NoError(t, apply(m, opts))
	assert.Equal(t, uint(1), m.to)
}

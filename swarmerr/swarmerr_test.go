package swarmerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorChainsWithCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(Timeout, "probe did not become healthy", cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "TIMEOUT")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsMatchesKindAcrossWrapping(t *testing.T) {
	err := fmt.Errorf("dispatch failed: %w", New(Deadlock, "cycle among held resources"))

	assert.True(t, Is(err, Deadlock))
	assert.False(t, Is(err, Timeout))
}

func TestAsExtractsUnderlyingError(t *testing.T) {
	wrapped := fmt.Errorf("node server_a: %w", New(CommandFailed, "exit 1"))

	extracted, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, CommandFailed, extracted.Kind)
}

func TestSubprocessCarriesExitDetail(t *testing.T) {
	err := Subprocess("lighthouse CLI exited nonzero", "stdout text", "stderr text", 1)

	assert.Equal(t, CommandFailed, err.Kind)
	assert.Equal(t, 1, err.ExitCode)
	assert.Equal(t, "stdout text", err.Stdout)
}

func TestExitCodeMapping(t *testing.T) {
	cases := map[Kind]int{
		FileNotFound:  202,
		InvalidSchema: 202,
		InvalidEdge:   202,
		CycleDetected: 203,
		PackageFailed: 401,
		ReportFailed:  402,
		UnknownType:   204,
		Timeout:       204,
		Deadlock:      204,
	}
	for kind, want := range cases {
		assert.Equal(t, want, ExitCode(kind), "kind %s", kind)
	}
}

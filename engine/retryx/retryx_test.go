package retryx

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestIsTransientMatchesNamedSignals(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"connect ETIMEDOUT 127.0.0.1:3000", true},
		{"connect ECONNREFUSED 127.0.0.1:3000", true},
		{"read ECONNRESET", true},
		{"request timeout after 5s", true},
		{"server responded 503 Service Unavailable", true},
		{"headless browser process crash detected", true},
		{"Protocol error: Target closed", true},
		{"ENOENT: no such file or directory", false},
		{"invalid params: missing auv", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IsTransient(c.msg), "message: %s", c.msg)
	}
}

func TestBackoffCapsAtThirtySeconds(t *testing.T) {
	assert.Equal(t, 1*time.Second, Backoff(1000, 1))
	assert.Equal(t, 2*time.Second, Backoff(1000, 2))
	assert.Equal(t, 4*time.Second, Backoff(1000, 3))
	assert.Equal(t, 30*time.Second, Backoff(1000, 10))
}

func TestClassifyPermanentNeverRetries(t *testing.T) {
	d := Classify("invalid params: missing auv", 0, 5, 1000)
	assert.False(t, d.Retry)
}

func TestClassifyExhaustsAtRetriesMax(t *testing.T) {
	d := Classify("ECONNREFUSED", 2, 2, 1000)
	assert.False(t, d.Retry)

	d = Classify("ECONNREFUSED", 1, 2, 1000)
	assert.True(t, d.Retry)
	assert.Equal(t, 2, d.NextAttempt)
}

// TestRetryBoundProperty verifies the retry bound: a node's attempts never
// exceed retries.max + 1, and permanent errors never retry regardless of
// attempts remaining.
func TestRetryBoundProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("permanent errors never retry", prop.ForAll(
		func(attempts, max, backoff int) bool {
			d := Classify("invalid schema: missing field", attempts, max, backoff)
			return !d.Retry
		},
		gen.IntRange(0, 10), gen.IntRange(0, 10), gen.IntRange(1, 5000),
	))

	properties.Property("attempts never exceed retries.max+1 under repeated transient failure", prop.ForAll(
		func(max, backoff int) bool {
			attempts := 0
			for i := 0; i < max+5; i++ {
				d := Classify("ECONNREFUSED", attempts, max, backoff)
				if !d.Retry {
					break
				}
				attempts = d.NextAttempt
			}
			return attempts <= max+1
		},
		gen.IntRange(0, 10), gen.IntRange(1, 5000),
	))

	properties.TestingRun(t)
}

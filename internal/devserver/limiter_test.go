package devserver

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestVoteLimiterCleansIdleClients(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := newVoteLimiter(1, 1, clock.Now)

	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	assert.Equal(t, 2, l.active())

	clock.Advance(11 * time.Minute)
	assert.True(t, l.Allow("c"))
	assert.Equal(t, 1, l.active(), "idle limiters are dropped")
}

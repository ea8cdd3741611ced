package world

import (
	"testing"

	"github.com/kasuganosora/stealthguard/game/geom"
	"github.com/stretchr/testify/assert"
)

func TestSecurityCamera_BlindCountdown(t *testing.T) {
	c := &SecurityCamera{ID: "c", Position: geom.V(0, 0), Radius: 2}
	c.Tick()
	assert.False(t, c.Blinded())

	c.Blind()
	assert.True(t, c.Blinded())
	assert.Equal(t, MaxBlindTicks, c.BlindTimer())

	for i := 1; i <= MaxBlindTicks; i++ {
		c.Tick()
		assert.True(t, c.Blinded(), "tick %d", i)
		assert.Equal(t, MaxBlindTicks-i, c.BlindTimer())
	}
	c.Tick()
	assert.False(t, c.Blinded())
}

func TestSecurityCamera_BlindRestartsCountdown(t *testing.T) {
	c := &SecurityCamera{Radius: 1}
	c.Blind()
	for i := 0; i < 100; i++ {
		c.Tick()
	}
	c.Blind()
	assert.Equal(t, MaxBlindTicks, c.BlindTimer())
}

func TestSecurityCamera_Contains(t *testing.T) {
	c := &SecurityCamera{Position: geom.V(2, 2), Radius: 1}
	assert.True(t, c.Contains(geom.V(2, 2)))
	assert.True(t, c.Contains(geom.V(3, 2)))
	assert.False(t, c.Contains(geom.V(3.1, 2)))
}

package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyPrefix(t *testing.T) {
	r := &Client{prefix: "stealth:"}
	assert.Equal(t, "stealth:grid:vault", r.key("grid:vault"))
	assert.Equal(t, []string{"stealth:a", "stealth:b"}, r.keys([]string{"a", "b"}))

	bare := &Client{}
	assert.Equal(t, "grid:vault", bare.key("grid:vault"))
}

func TestNewClient_Unreachable(t *testing.T) {
	_, err := NewClient(Config{Addr: "127.0.0.1:1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping 127.0.0.1:1")
}

package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	t.Run("caches the initialize request and tracks pending", func(t *testing.T) {
		s := NewSession()
		raw := []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
		s.OnClientMessage(parseMessage(raw), raw)

		cached, ok := s.InitializeRequest()
		require.True(t, ok)
		assert.Equal(t, raw, cached)

		pending, ok := s.Pending()
		require.True(t, ok)
		assert.Equal(t, "initialize", pending.Method)
		assert.False(t, s.Initialized())
	})

	t.Run("a result response to the cached initialize id marks initialized", func(t *testing.T) {
		s := NewSession()
		raw := []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
		s.OnClientMessage(parseMessage(raw), raw)

		resp := parseMessage([]byte(`{"jsonrpc":"2.0","id":1,"result":{"protocolVersion":"2024-11-05"}}`))
		s.OnServerMessage(resp)

		assert.True(t, s.Initialized())
		_, hasPending := s.Pending()
		assert.False(t, hasPending)
	})

	t.Run("later request overwrites the single pending slot", func(t *testing.T) {
		s := NewSession()
		first := []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
		second := []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/call"}`)
		s.OnClientMessage(parseMessage(first), first)
		s.OnClientMessage(parseMessage(second), second)

		pending, ok := s.Pending()
		require.True(t, ok)
		assert.Equal(t, "tools/call", pending.Method)
		assert.Equal(t, json.RawMessage("2"), pending.ID)
	})

	t.Run("MarkUninitialized preserves the cached initialize request", func(t *testing.T) {
		s := NewSession()
		raw := []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
		s.OnClientMessage(parseMessage(raw), raw)
		s.OnServerMessage(parseMessage([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`)))
		require.True(t, s.Initialized())

		s.MarkUninitialized()
		assert.False(t, s.Initialized())
		_, ok := s.InitializeRequest()
		assert.True(t, ok)
	})

	t.Run("Reset clears everything", func(t *testing.T) {
		s := NewSession()
		raw := []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
		s.OnClientMessage(parseMessage(raw), raw)
		s.Reset()

		_, ok := s.InitializeRequest()
		assert.False(t, ok)
		_, ok = s.Pending()
		assert.False(t, ok)
		assert.False(t, s.Initialized())
	})
}

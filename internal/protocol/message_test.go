package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageClassification(t *testing.T) {
	t.Run("request has id and method", func(t *testing.T) {
		msg := parseMessage([]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/call"}`))
		require.NotNil(t, msg)
		assert.True(t, msg.IsRequest())
		assert.False(t, msg.IsResponse())
		assert.False(t, msg.IsNotification())
	})

	t.Run("notification has method but no id", func(t *testing.T) {
		msg := parseMessage([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
		require.NotNil(t, msg)
		assert.True(t, msg.IsNotification())
		assert.False(t, msg.IsRequest())
	})

	t.Run("response has id but no method", func(t *testing.T) {
		msg := parseMessage([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`))
		require.NotNil(t, msg)
		assert.True(t, msg.IsResponse())
		assert.True(t, msg.IsSuccess())
	})

	t.Run("invalid JSON parses to nil", func(t *testing.T) {
		msg := parseMessage([]byte(`not json`))
		assert.Nil(t, msg)
	})
}

func TestParserFeed(t *testing.T) {
	t.Run("single chunk with one complete frame", func(t *testing.T) {
		p := NewParser()
		frames := p.Feed([]byte("{\"jsonrpc\":\"2.0\",\"method\":\"ping\"}\n"))
		require.Len(t, frames, 1)
		assert.Equal(t, "ping", frames[0].Parsed.Method)
	})

	t.Run("frame split across two feeds is parsed as one frame", func(t *testing.T) {
		p := NewParser()
		raw := `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"x"}}`
		mid := len(raw) / 2

		first := p.Feed([]byte(raw[:mid]))
		assert.Empty(t, first, "no complete frame yet")

		second := p.Feed([]byte(raw[mid:] + "\n"))
		require.Len(t, second, 1)
		assert.Equal(t, raw, string(second[0].Raw))
		assert.Equal(t, "tools/call", second[0].Parsed.Method)
	})

	t.Run("multiple frames in one chunk", func(t *testing.T) {
		p := NewParser()
		frames := p.Feed([]byte("{\"jsonrpc\":\"2.0\",\"method\":\"a\"}\n{\"jsonrpc\":\"2.0\",\"method\":\"b\"}\n"))
		require.Len(t, frames, 2)
		assert.Equal(t, "a", frames[0].Parsed.Method)
		assert.Equal(t, "b", frames[1].Parsed.Method)
	})

	t.Run("carriage return is trimmed", func(t *testing.T) {
		p := NewParser()
		frames := p.Feed([]byte("{\"jsonrpc\":\"2.0\",\"method\":\"ping\"}\r\n"))
		require.Len(t, frames, 1)
		assert.NotContains(t, string(frames[0].Raw), "\r")
	})

	t.Run("blank lines are skipped", func(t *testing.T) {
		p := NewParser()
		frames := p.Feed([]byte("\n\n{\"jsonrpc\":\"2.0\",\"method\":\"ping\"}\n\n"))
		require.Len(t, frames, 1)
	})
}

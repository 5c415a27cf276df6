// Package protocol implements the line-delimited JSON-RPC dialect spoken by
// both the MCP client and the managed server, plus the routing state that
// ties one session of that dialect to a swappable server connection.
package protocol

import "encoding/json"

// Message is a parsed JSON-RPC 2.0 value. Fields are left as raw JSON so
// forwarding never re-serializes payloads the proxy does not need to
// understand.
type Message struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// IsRequest reports whether m has both id and method.
func (m *Message) IsRequest() bool {
	return len(m.ID) > 0 && m.Method != ""
}

// IsNotification reports whether m has a method but no id.
func (m *Message) IsNotification() bool {
	return len(m.ID) == 0 && m.Method != ""
}

// IsResponse reports whether m has an id but no method.
func (m *Message) IsResponse() bool {
	return len(m.ID) > 0 && m.Method == ""
}

// IsSuccess reports whether m is a response carrying a result.
func (m *Message) IsSuccess() bool {
	return m.IsResponse() && len(m.Result) > 0
}

func parseMessage(data []byte) *Message {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil
	}
	// `null`, `{}` or an object with none of the JSON-RPC fields unmarshals
	// into a zero Message without error; reject anything that isn't a
	// JSON-RPC shaped object.
	if msg.JSONRPC == "" && msg.Method == "" && len(msg.ID) == 0 && len(msg.Result) == 0 && len(msg.Error) == 0 {
		return nil
	}
	return &msg
}

// Frame is one line of the wire protocol: its exact original bytes
// (without the trailing newline or a carriage return before it) plus the parsed Message, if the line was
// valid JSON-RPC shaped JSON. Parsed is nil for non-JSON noise, which is
// still forwarded verbatim per spec.
type Frame struct {
	Raw    []byte
	Parsed *Message
}

// Parser splits an incoming byte stream into newline-delimited frames,
// preserving a partial trailing line across Feed calls.
type Parser struct {
	buf []byte
}

// NewParser returns an empty Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Feed appends chunk to the internal buffer and returns every complete line
// found so far. A line split across two Feed calls is only emitted once
// its terminating '\n' arrives. Blank lines between frames are dropped
// silently.
func (p *Parser) Feed(chunk []byte) []Frame {
	p.buf = append(p.buf, chunk...)

	var frames []Frame
	start := 0
	for i := 0; i < len(p.buf); i++ {
		if p.buf[i] != '\n' {
			continue
		}
		line := p.buf[start:i]
		start = i + 1
		if f, ok := toFrame(line); ok {
			frames = append(frames, f)
		}
	}
	p.buf = append([]byte(nil), p.buf[start:]...)
	return frames
}

func toFrame(line []byte) (Frame, bool) {
	trimmed := line
	if len(trimmed) > 0 && trimmed[len(trimmed)-1] == '\r' {
		trimmed = trimmed[:len(trimmed)-1]
	}
	if len(bytesTrimSpace(trimmed)) == 0 {
		return Frame{}, false
	}
	raw := append([]byte(nil), trimmed...)
	return Frame{Raw: raw, Parsed: parseMessage(raw)}, true
}

func bytesTrimSpace(b []byte) []byte {
	start := 0
	for start < len(b) && isSpace(b[start]) {
		start++
	}
	end := len(b)
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\v' || c == '\f'
}

// Serialize marshals m back to JSON. Used only for frames the proxy itself
// synthesizes (crash errors, the tools-changed notification); forwarded
// frames always reuse the original raw bytes instead.
func (m *Message) Serialize() ([]byte, error) {
	return json.Marshal(m)
}

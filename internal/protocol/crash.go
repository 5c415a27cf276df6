package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/cordwainer/mcpwatch/internal/lifecycle"
)

const crashErrorCode = -32603

// signalPhrases maps the canonical signal names Lifecycle recognizes to
// the human-readable fragment used in synthesized crash messages.
var signalPhrases = map[string]string{
	"SIGSEGV": "segmentation fault",
	"SIGKILL": "killed forcefully — possible OOM or manual termination",
	"SIGTERM": "terminated — shutdown requested",
	"SIGINT":  "interrupted",
}

// exitCodePhrases maps well-known exit codes to the fragment spec.md §4.4
// specifies.
var exitCodePhrases = map[int]string{
	1:   "general error",
	127: "command not found",
	130: "Ctrl+C",
	137: "killed (likely OOM)",
	143: "SIGTERM",
}

func describeExit(info lifecycle.ExitInfo) string {
	if info.SignalName != "" {
		if phrase, ok := signalPhrases[info.SignalName]; ok {
			return phrase
		}
		return fmt.Sprintf("(signal: %d)", info.SignalNum)
	}
	if info.SignalNum != 0 {
		return fmt.Sprintf("(signal: %d)", info.SignalNum)
	}
	if info.ExitCode != nil {
		code := *info.ExitCode
		if code == 0 {
			return "exited cleanly"
		}
		if phrase, ok := exitCodePhrases[code]; ok {
			return phrase
		}
		return fmt.Sprintf("(exit code %d)", code)
	}
	return "terminated unexpectedly"
}

// BuildCrashResponse synthesizes the JSON-RPC error response for the
// request that was in flight when the server crashed, per spec.md §4.4.
func BuildCrashResponse(pending PendingRequest, info lifecycle.ExitInfo) *Message {
	message := fmt.Sprintf("MCP server terminated unexpectedly (%s). Hot-reload will attempt to restart on next file change.", describeExit(info))

	data := struct {
		ExitCode *int   `json:"exitCode"`
		Signal   *int   `json:"signal"`
		Method   string `json:"method"`
		Info     string `json:"info"`
	}{
		ExitCode: info.ExitCode,
		Method:   pending.Method,
		Info:     "Save a file to trigger rebuild and restart.",
	}
	if info.SignalNum != 0 {
		n := info.SignalNum
		data.Signal = &n
	}
	dataJSON, _ := json.Marshal(data)

	errObj := struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}{
		Code:    crashErrorCode,
		Message: message,
		Data:    dataJSON,
	}
	errJSON, _ := json.Marshal(errObj)

	return &Message{
		JSONRPC: "2.0",
		ID:      pending.ID,
		Error:   errJSON,
	}
}

// ToolsListChangedNotification is the synthesized notification emitted
// after a successful restart when the session had already completed
// initialization.
func ToolsListChangedNotification() *Message {
	return &Message{JSONRPC: "2.0", Method: "notifications/tools/list_changed"}
}

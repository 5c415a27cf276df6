package protocol

import (
	"io"
	"log/slog"
	"sync"

	"github.com/cordwainer/mcpwatch/internal/lifecycle"
)

// Handler is the protocol layer's central component (I in spec.md §2): it
// owns the Message Parser, Priority Queue and Session State, and performs
// bidirectional routing between the client and whichever server
// Connection is currently attached.
type Handler struct {
	clientOut io.Writer
	logger    *slog.Logger

	session *Session
	queue   *Queue

	mu         sync.Mutex
	conn       *lifecycle.Connection
	readerDone chan struct{}
}

// NewHandler attaches once to the client's stdout writer. The client's
// stdin should be fed to HandleClientChunk/ReadClientLoop by the caller.
func NewHandler(clientOut io.Writer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		clientOut: clientOut,
		logger:    logger,
		session:   NewSession(),
		queue:     NewQueue(),
	}
}

// SessionState exposes read-only session observability.
func (h *Handler) SessionState() *Session { return h.session }

// QueueSize reports how many frames are waiting for a server connection.
func (h *Handler) QueueSize() int { return h.queue.Size() }

// ReadClientLoop reads raw chunks from r (the client's stdin), feeds them
// through the Message Parser, and routes every complete frame it yields.
// It returns when the stream ends (EOF or error), which the caller treats
// as a shutdown signal. Reading raw chunks rather than pre-split lines is
// what lets the Parser (and this loop) handle a frame split across reads.
func (h *Handler) ReadClientLoop(r io.Reader) error {
	parser := NewParser()
	buf := make([]byte, 64*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, frame := range parser.Feed(buf[:n]) {
				h.routeClientFrame(frame.Raw)
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func (h *Handler) routeClientFrame(raw []byte) {
	msg := parseMessage(raw)
	h.session.OnClientMessage(msg, raw)

	priority := PriorityNotification
	if msg != nil {
		switch {
		case msg.Method == "initialize":
			priority = PriorityInitialize
		case msg.IsRequest():
			priority = PriorityRequest
		}
	}

	h.mu.Lock()
	conn := h.conn
	h.mu.Unlock()

	isInitialize := msg != nil && msg.Method == "initialize"

	if conn == nil || !conn.IsAlive() {
		h.queue.Push(raw, priority)
		return
	}
	if !h.session.Initialized() && !isInitialize {
		h.queue.Push(raw, priority)
		return
	}
	if err := writeFrame(conn.Stdin(), raw); err != nil {
		h.logger.Debug("write to server failed, queueing", "error", err)
		h.queue.Push(raw, priority)
	}
}

// ConnectServer installs conn as the current server connection: any prior
// connection is disconnected first, a reader is attached to conn's
// stdout, its crash notification is subscribed, the cached initialize
// request (if any) is replayed, and the queue is drained in priority
// order. Per spec.md §4.4, attaching always marks the session
// uninitialized — the new child has not yet answered initialize.
//
// h.mu is held across installing conn and replaying the cached initialize
// request: routeClientFrame reads h.conn under the same lock, so a client
// frame racing this call can never reach conn's stdin ahead of the replay.
func (h *Handler) ConnectServer(conn *lifecycle.Connection) {
	h.DisconnectServer()

	h.mu.Lock()
	defer h.mu.Unlock()

	h.conn = conn
	done := make(chan struct{})
	h.readerDone = done

	go h.readServerLoop(conn, done)
	go h.watchCrash(conn)

	if raw, ok := h.session.InitializeRequest(); ok {
		h.session.MarkUninitialized()
		if err := writeFrame(conn.Stdin(), raw); err != nil {
			h.logger.Warn("failed to replay cached initialize request", "error", err)
		}
	}

	for _, raw := range h.queue.Drain() {
		if err := writeFrame(conn.Stdin(), raw); err != nil {
			h.logger.Warn("failed to flush queued frame on connect", "error", err)
			h.queue.Push(raw, PriorityRequest)
		}
	}
}

func (h *Handler) readServerLoop(conn *lifecycle.Connection, done chan struct{}) {
	defer close(done)
	parser := NewParser()
	buf := make([]byte, 64*1024)
	for {
		n, err := conn.Stdout().Read(buf)
		if n > 0 {
			for _, frame := range parser.Feed(buf[:n]) {
				if conn.Disposed() {
					return
				}
				wasInitialized := h.session.Initialized()
				h.session.OnServerMessage(frame.Parsed)
				if werr := writeFrame(h.clientOut, frame.Raw); werr != nil {
					h.logger.Debug("write to client failed", "error", werr)
				}
				if !wasInitialized && h.session.Initialized() {
					h.mu.Lock()
					if h.conn == conn {
						for _, raw := range h.queue.Drain() {
							if err := writeFrame(conn.Stdin(), raw); err != nil {
								h.queue.Push(raw, PriorityRequest)
							}
						}
					}
					h.mu.Unlock()
				}
			}
		}
		if err != nil {
			return
		}
	}
}

func (h *Handler) watchCrash(conn *lifecycle.Connection) {
	<-conn.WaitForCrash()
	if conn.Disposed() {
		return
	}
	h.mu.Lock()
	current := h.conn
	h.mu.Unlock()
	if current != conn {
		return
	}
	h.HandleServerCrash(conn.ExitInfo())
}

// HandleServerCrash synthesizes and emits a crash error response for the
// pending request (if any), then disconnects. Idempotent in the sense
// that calling it with no current connection is a no-op.
func (h *Handler) HandleServerCrash(info lifecycle.ExitInfo) {
	h.mu.Lock()
	connected := h.conn != nil
	h.mu.Unlock()
	if !connected {
		return
	}
	if pending, ok := h.session.Pending(); ok {
		resp := BuildCrashResponse(pending, info)
		data, err := resp.Serialize()
		if err == nil {
			if err := writeFrame(h.clientOut, data); err != nil {
				h.logger.Debug("failed writing crash response to client", "error", err)
			}
		}
		h.session.ClearPending()
	}
	h.DisconnectServer()
}

// DisconnectServer detaches the stdout reader, disposes the current
// connection and clears the reference. Idempotent. The reader goroutine
// stops forwarding once it sees the connection disposed and exits at its
// next read; session state is left as it is.
func (h *Handler) DisconnectServer() {
	h.mu.Lock()
	conn := h.conn
	h.conn = nil
	h.mu.Unlock()

	if conn == nil {
		return
	}
	conn.Dispose()
}

// EmitToolsListChanged writes the synthesized list-changed notification to
// the client, used by the hot-reload loop after a successful restart when
// the session had already completed initialization.
func (h *Handler) EmitToolsListChanged() {
	data, err := ToolsListChangedNotification().Serialize()
	if err != nil {
		return
	}
	if err := writeFrame(h.clientOut, data); err != nil {
		h.logger.Debug("failed emitting tools/list_changed", "error", err)
	}
}

// Shutdown disconnects the server, resets session state and clears the
// queue.
func (h *Handler) Shutdown() {
	h.DisconnectServer()
	h.session.Reset()
	h.queue.Clear()
}

func writeFrame(w io.Writer, raw []byte) error {
	line := make([]byte, 0, len(raw)+1)
	line = append(line, raw...)
	line = append(line, '\n')
	_, err := w.Write(line)
	return err
}

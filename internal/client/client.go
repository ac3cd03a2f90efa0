// Package client implements the bidirectional client (C8): an interactive,
// stateful conversation over a streaming-mode transport, with background
// goroutines reading messages, writing control requests, and (optionally)
// auto-handling hooks and permissions.
//
// Grounded on the original crate's src/client/mod.rs in full: the
// lock-free reader/writer split (the reader takes the transport's receive
// channel once and never blocks the writer) is preserved, generalized from
// tokio tasks + mpsc channels to goroutines + Go channels, coordinated by
// golang.org/x/sync/errgroup so any one goroutine's fatal error tears down
// the whole group.
//
// Departure from the original: that implementation builds the hook/
// permission response envelope but never transmits it, leaving hooks and
// permissions advisory-only (its own doc comments note the gap). This
// client wires the response back to the CLI by default; set
// DisableHookResponses to restore the original's silent-drop behavior.
package client

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stevensu1977/flowq-agent-sdk/internal/hookmgr"
	"github.com/stevensu1977/flowq-agent-sdk/internal/observability"
	"github.com/stevensu1977/flowq-agent-sdk/internal/permmgr"
	"github.com/stevensu1977/flowq-agent-sdk/internal/protocol"
	"github.com/stevensu1977/flowq-agent-sdk/internal/transport"
)

// Options configures a Client in addition to the underlying transport.
type Options struct {
	Transport *transport.Config

	// HookManager, if non-nil, automatically evaluates hook events arriving
	// on the control channel and (unless DisableHookResponses) answers them.
	HookManager *hookmgr.Manager

	// PermissionManager, if non-nil, automatically evaluates permission
	// requests and (unless DisableHookResponses) answers them.
	PermissionManager *permmgr.Manager

	// DisableHookResponses restores the advisory-only behavior of never
	// transmitting hook/permission responses back to the CLI.
	DisableHookResponses bool

	Logger *observability.Logger
}

// Client is the C8 bidirectional conversation handle.
type Client struct {
	opts     Options
	logger   *observability.Logger
	tr       *transport.StdioTransport
	protocol *protocol.ProtocolHandler

	messages chan messageOrErr
	hookCh   chan *protocol.HookEvent
	permCh   chan *protocol.PermissionEvent

	group  *errgroup.Group
	cancel context.CancelFunc

	// sessionID holds a locally minted google/uuid v4 string until the
	// Agent CLI supplies its own session_id on a data message, at which
	// point readLoop latches it in. This gives callers (observability
	// correlation, in particular) a stable SessionId from the moment
	// Connect returns, rather than only after the CLI's first reply.
	sessionID atomic.Value

	closeOnce sync.Once
}

type messageOrErr struct {
	msg *protocol.Message
	err error
}

// New constructs and connects a bidirectional Client in streaming mode.
func New(ctx context.Context, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}

	cfg := *opts.Transport
	cfg.Mode = transport.ModeStreaming
	cfg.Logger = logger

	tr := transport.New(&cfg)
	if err := tr.Connect(ctx); err != nil {
		return nil, err
	}

	ph := protocol.NewProtocolHandler()
	// The Agent CLI does not perform the init handshake in stream-json
	// mode; mark the handler initialized immediately (§4.2, §9).
	ph.ForceInitialize()

	hookCh := make(chan *protocol.HookEvent, 16)
	permCh := make(chan *protocol.PermissionEvent, 16)
	ph.AttachHookChannel(hookCh)
	ph.AttachPermissionChannel(permCh)

	groupCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(groupCtx)

	c := &Client{
		opts:     opts,
		logger:   logger,
		tr:       tr,
		protocol: ph,
		messages: make(chan messageOrErr, 64),
		hookCh:   hookCh,
		permCh:   permCh,
		group:    group,
		cancel:   cancel,
	}
	c.sessionID.Store(uuid.NewString())

	group.Go(func() error { return c.readLoop(groupCtx) })
	if opts.HookManager != nil {
		group.Go(func() error { return c.hookLoop(groupCtx) })
	}
	if opts.PermissionManager != nil {
		group.Go(func() error { return c.permissionLoop(groupCtx) })
	}

	return c, nil
}

// readLoop owns the transport's receive channel exclusively: it sniffs each
// value as a control envelope first, falling through to data-message
// parsing, matching the original's "try control, else parse as Message"
// order exactly.
func (c *Client) readLoop(ctx context.Context) error {
	defer close(c.messages)
	values := c.tr.Values()
	errs := c.tr.Errors()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if ok && err != nil {
				c.messages <- messageOrErr{err: err}
				return err
			}
			return nil
		case data, ok := <-values:
			if !ok {
				return nil
			}
			isControl, err := c.protocol.HandleValue(data)
			if err != nil {
				c.messages <- messageOrErr{err: err}
				continue
			}
			if isControl {
				continue
			}

			msg, err := protocol.ParseMessage(data)
			if err != nil {
				c.messages <- messageOrErr{err: err}
				continue
			}
			if sid, ok := sessionIDFromMessage(msg); ok {
				c.sessionID.Store(sid)
			}
			select {
			case c.messages <- messageOrErr{msg: msg}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// hookLoop automatically evaluates hook events and, unless disabled,
// transmits the response back to the CLI.
func (c *Client) hookLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-c.hookCh:
			if !ok {
				return nil
			}
			var toolName *string
			var parsedEvent struct {
				ToolName string `json:"tool_name"`
			}
			_ = jsonUnmarshal(ev.Event, &parsedEvent)
			if parsedEvent.ToolName != "" {
				toolName = &parsedEvent.ToolName
			}

			output := c.opts.HookManager.Invoke(ctx, hookmgr.EventPreToolUse, toolName, ev.Event)
			if c.opts.DisableHookResponses {
				continue
			}
			if err := c.RespondToHook(ev.HookID, output); err != nil {
				c.logger.Error(ctx, "failed to send hook response", "hook_id", ev.HookID, "error", err)
			}
		}
	}
}

// permissionLoop automatically evaluates permission requests and, unless
// disabled, transmits the decision back to the CLI.
func (c *Client) permissionLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-c.permCh:
			if !ok {
				return nil
			}
			var req struct {
				ToolName string `json:"tool_name"`
				Input    any    `json:"tool_input"`
			}
			_ = jsonUnmarshal(ev.Event, &req)

			result, err := c.opts.PermissionManager.CanUseTool(ctx, req.ToolName, req.Input)
			if err != nil {
				c.logger.Error(ctx, "permission evaluation failed", "tool_name", req.ToolName, "error", err)
				continue
			}
			if c.opts.DisableHookResponses {
				continue
			}
			if err := c.RespondToPermission(ev.PermissionID, result); err != nil {
				c.logger.Error(ctx, "failed to send permission response", "permission_id", ev.PermissionID, "error", err)
			}
		}
	}
}

// sessionIDFromMessage extracts a CLI-supplied session_id from whichever
// message variant carries one.
func sessionIDFromMessage(msg *protocol.Message) (string, bool) {
	switch msg.Type {
	case protocol.MessageTypeUser:
		if msg.User != nil && msg.User.SessionID != nil && *msg.User.SessionID != "" {
			return *msg.User.SessionID, true
		}
	case protocol.MessageTypeAssistant:
		if msg.Assistant != nil && msg.Assistant.SessionID != nil && *msg.Assistant.SessionID != "" {
			return *msg.Assistant.SessionID, true
		}
	case protocol.MessageTypeResult:
		if msg.Result != nil && msg.Result.SessionID != "" {
			return msg.Result.SessionID, true
		}
	case protocol.MessageTypeStreamEvent:
		if msg.StreamEvent != nil && msg.StreamEvent.SessionID != "" {
			return msg.StreamEvent.SessionID, true
		}
	}
	return "", false
}

// SessionID returns the current session identifier: a locally minted UUID
// until the Agent CLI supplies its own on a data message, after which that
// value is returned instead (§3 "SessionId ... opaque string").
func (c *Client) SessionID() protocol.SessionId {
	return protocol.SessionId(c.sessionID.Load().(string))
}

// Send writes a user turn to the conversation.
func (c *Client) Send(content string) error {
	data, err := protocol.NewUserTurn(content)
	if err != nil {
		return err
	}
	return c.tr.Write(data)
}

// Next returns the next parsed message, or an error, or (nil, nil, false)
// when the conversation stream has ended.
func (c *Client) Next() (*protocol.Message, error, bool) {
	item, ok := <-c.messages
	if !ok {
		return nil, nil, false
	}
	return item.msg, item.err, true
}

// Interrupt sends the simplified interrupt control envelope (§4.2, §9).
func (c *Client) Interrupt() error {
	return c.tr.Write(c.protocol.CreateInterruptEnvelope())
}

// RespondToHook transmits a hook response envelope back to the CLI.
func (c *Client) RespondToHook(hookID string, output any) error {
	data, err := c.protocol.CreateHookResponseEnvelope(hookID, output)
	if err != nil {
		return err
	}
	return c.tr.Write(data)
}

// RespondToPermission transmits a permission response envelope back to the
// CLI.
func (c *Client) RespondToPermission(permissionID string, result any) error {
	data, err := c.protocol.CreatePermissionResponseEnvelope(permissionID, result)
	if err != nil {
		return err
	}
	return c.tr.Write(data)
}

// Close tears down the background goroutine group and the transport.
func (c *Client) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		c.cancel()
		closeErr = c.tr.Close()
		_ = c.group.Wait()
	})
	return closeErr
}

func jsonUnmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

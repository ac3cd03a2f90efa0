package protocol

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/stevensu1977/flowq-agent-sdk/internal/sdkerrors"
)

// RequestId is an opaque correlation identifier for a pending control
// request, distinct from SessionId and ToolName at the API boundary (§3).
type RequestId string

// ToolName is an opaque identifier distinct from RequestId/SessionId.
type ToolName string

// SessionId is an opaque identifier distinct from RequestId/ToolName.
type SessionId string

// ProtocolVersion is the control protocol's wire version. A mismatch on
// init_response is a fatal ControlProtocolError.
const ProtocolVersion = "1.0"

// EnvelopeType discriminates the control envelope family on its "type"
// field (§3).
type EnvelopeType string

const (
	EnvelopeInit         EnvelopeType = "init"
	EnvelopeInitResponse EnvelopeType = "init_response"
	EnvelopeRequest      EnvelopeType = "request"
	EnvelopeResponse     EnvelopeType = "response"
)

// ControlRequestMethod enumerates the methods a "request" envelope may carry.
type ControlRequestMethod string

const (
	MethodInterrupt           ControlRequestMethod = "interrupt"
	MethodSendMessage         ControlRequestMethod = "send_message"
	MethodHookResponse        ControlRequestMethod = "hook_response"
	MethodPermissionResponse  ControlRequestMethod = "permission_response"
)

// ControlResponseStatus enumerates the status values a "response" envelope
// may carry. success/error correlate to an outstanding request id; hook and
// permission are server-initiated and carry their own id.
type ControlResponseStatus string

const (
	StatusSuccess    ControlResponseStatus = "success"
	StatusError      ControlResponseStatus = "error"
	StatusHook       ControlResponseStatus = "hook"
	StatusPermission ControlResponseStatus = "permission"
)

// ClientCapabilities advertises what the client supports in the init
// handshake.
type ClientCapabilities struct {
	Hooks       bool `json:"hooks"`
	Permissions bool `json:"permissions"`
}

// ServerCapabilities advertises what the Agent CLI supports in the
// init_response.
type ServerCapabilities struct {
	Hooks       bool `json:"hooks"`
	Permissions bool `json:"permissions"`
}

// InitEnvelope is the client → CLI handshake request.
type InitEnvelope struct {
	ProtocolVersion string             `json:"protocol_version"`
	SDKVersion      string             `json:"sdk_version"`
	Capabilities    ClientCapabilities `json:"capabilities"`
}

// InitResponseEnvelope is the CLI → client handshake reply.
type InitResponseEnvelope struct {
	ProtocolVersion string             `json:"protocol_version"`
	CLIVersion      string             `json:"cli_version"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	SessionID       string             `json:"session_id"`
}

// RequestEnvelope is a client → CLI control request.
type RequestEnvelope struct {
	ID     RequestId             `json:"id"`
	Method ControlRequestMethod  `json:"method"`
	Params json.RawMessage       `json:"params,omitempty"`
}

// ResponseEnvelope is a CLI → client control response. For success/error it
// correlates to RequestEnvelope.ID; for hook/permission it is
// server-initiated and HookID/PermissionID carry its own id instead.
type ResponseEnvelope struct {
	ID            *RequestId            `json:"id,omitempty"`
	Status        ControlResponseStatus `json:"status"`
	Result        json.RawMessage       `json:"result,omitempty"`
	Error         *string               `json:"error,omitempty"`
	HookID        *string               `json:"hook_id,omitempty"`
	PermissionID  *string               `json:"permission_id,omitempty"`
	Event         json.RawMessage       `json:"event,omitempty"`
}

// MarshalJSON encodes the envelope with its "type":"response" discriminator
// so HandleValue recognizes it as a control message.
func (r ResponseEnvelope) MarshalJSON() ([]byte, error) {
	type plain ResponseEnvelope
	p := plain(r)
	return marshalTagged(EnvelopeResponse, &p)
}

// envelopeHead is used to sniff the "type" discriminator before deciding
// which control variant (or none, meaning "this is a data message") to
// decode into.
type envelopeHead struct {
	Type EnvelopeType `json:"type"`
}

// HookEvent is delivered to the hook handler task when a "response" envelope
// with status=hook arrives (§4.3 item 3).
type HookEvent struct {
	HookID string
	Event  json.RawMessage
}

// PermissionEvent is delivered to the permission handler task when a
// "response" envelope with status=permission arrives (§4.3 item 4).
type PermissionEvent struct {
	PermissionID string
	Event        json.RawMessage
}

// ProtocolHandler is a passive state machine (§4.2): it never touches I/O
// itself, only transforms values in and out. It is grounded on the original
// crate's control/protocol.rs ProtocolHandler one-for-one, including the
// "force-initialized because the current CLI does not perform the
// handshake in stream-json mode" behavior.
type ProtocolHandler struct {
	nextID      atomic.Int64
	initialized atomic.Bool

	mu      sync.Mutex
	pending map[RequestId]chan *ResponseEnvelope

	hookCh       chan *HookEvent
	permissionCh chan *PermissionEvent
}

// NewProtocolHandler constructs a handler with no hook/permission channels
// attached; AttachHookChannel/AttachPermissionChannel wire them in later if
// the client was configured with a hook manager / permission manager.
func NewProtocolHandler() *ProtocolHandler {
	return &ProtocolHandler{
		pending: make(map[RequestId]chan *ResponseEnvelope),
	}
}

// AttachHookChannel wires the channel that receives server-initiated hook
// events. Must be called before the reader task starts dispatching.
func (h *ProtocolHandler) AttachHookChannel(ch chan *HookEvent) {
	h.hookCh = ch
}

// AttachPermissionChannel wires the channel that receives server-initiated
// permission events.
func (h *ProtocolHandler) AttachPermissionChannel(ch chan *PermissionEvent) {
	h.permissionCh = ch
}

// ForceInitialize marks the handshake complete without requiring an actual
// init_response, matching current Agent CLI behavior in stream-json mode
// (§4.2, §9 second open question).
func (h *ProtocolHandler) ForceInitialize() {
	h.initialized.Store(true)
}

// Initialized reports whether the handshake has completed (or been forced).
func (h *ProtocolHandler) Initialized() bool {
	return h.initialized.Load()
}

// NextRequestID returns a fresh, monotonically increasing request id
// formatted "req-<n>" (§4.2).
func (h *ProtocolHandler) NextRequestID() RequestId {
	n := h.nextID.Add(1)
	return RequestId(fmt.Sprintf("req-%d", n))
}

// CreateInitRequest builds the client's init envelope. The handshake is not
// currently enforced by the Agent CLI (§9), but the envelope remains fully
// implemented for forward compatibility.
func (h *ProtocolHandler) CreateInitRequest(sdkVersion string) *InitEnvelope {
	return &InitEnvelope{
		ProtocolVersion: ProtocolVersion,
		SDKVersion:      sdkVersion,
		Capabilities: ClientCapabilities{
			Hooks:       h.hookCh != nil,
			Permissions: h.permissionCh != nil,
		},
	}
}

// HandleInitResponse validates the protocol version and marks the handler
// initialized. A version mismatch is a fatal ControlProtocolError.
func (h *ProtocolHandler) HandleInitResponse(resp *InitResponseEnvelope) error {
	if resp.ProtocolVersion != ProtocolVersion {
		return &sdkerrors.ControlProtocolError{
			Message: fmt.Sprintf("protocol version mismatch: got %q, want %q", resp.ProtocolVersion, ProtocolVersion),
		}
	}
	h.initialized.Store(true)
	return nil
}

// SendRequest registers a one-shot response slot for a new request and
// returns its id, the channel that will receive exactly one response, and
// the serialized envelope to transmit. The caller (the writer task in C8)
// is responsible for actually writing the bytes to the transport.
func (h *ProtocolHandler) SendRequest(method ControlRequestMethod, params any) (RequestId, <-chan *ResponseEnvelope, []byte, error) {
	id := h.NextRequestID()

	var paramsJSON json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return "", nil, nil, err
		}
		paramsJSON = b
	}

	req := RequestEnvelope{ID: id, Method: method, Params: paramsJSON}
	envelope := map[string]any{
		"type":    EnvelopeRequest,
		"id":      req.ID,
		"method":  req.Method,
		"params":  req.Params,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return "", nil, nil, err
	}

	respCh := make(chan *ResponseEnvelope, 1)
	h.mu.Lock()
	h.pending[id] = respCh
	h.mu.Unlock()

	return id, respCh, data, nil
}

// CreateInterruptEnvelope builds the simplified streaming-mode interrupt
// form used today, `{"type":"control","method":"interrupt"}` (§4.3, §9
// third open question — the richer ControlRequest::Interrupt{id} variant is
// modeled above via RequestEnvelope but not emitted for this method).
func (h *ProtocolHandler) CreateInterruptEnvelope() []byte {
	data, _ := json.Marshal(map[string]any{
		"type":   "control",
		"method": string(MethodInterrupt),
	})
	return data
}

// CreateHookResponseEnvelope builds the envelope a hook handler task sends
// back to the CLI once a hook callback has produced an output.
func (h *ProtocolHandler) CreateHookResponseEnvelope(hookID string, output any) ([]byte, error) {
	outputJSON, err := json.Marshal(output)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{
		"type":    EnvelopeRequest,
		"method":  MethodHookResponse,
		"hook_id": hookID,
		"params":  json.RawMessage(outputJSON),
	})
}

// CreatePermissionResponseEnvelope builds the envelope a permission handler
// task sends back to the CLI once a permission callback has produced a
// verdict.
func (h *ProtocolHandler) CreatePermissionResponseEnvelope(permissionID string, result any) ([]byte, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{
		"type":          EnvelopeRequest,
		"method":        MethodPermissionResponse,
		"permission_id": permissionID,
		"params":        json.RawMessage(resultJSON),
	})
}

// HandleValue attempts to interpret one inbound JSON value as a control
// envelope (§4.2). It returns ok=true if the value was a control envelope
// (in which case it has already been fully processed — dispatched to a
// pending slot, a hook/permission channel, or silently dropped per spec);
// ok=false means the value belongs to the data path and the caller should
// hand it to ParseMessage instead.
func (h *ProtocolHandler) HandleValue(data json.RawMessage) (ok bool, err error) {
	var head envelopeHead
	if err := json.Unmarshal(data, &head); err != nil {
		return false, nil
	}

	switch head.Type {
	case EnvelopeInitResponse:
		var resp InitResponseEnvelope
		if err := json.Unmarshal(data, &resp); err != nil {
			return true, err
		}
		return true, h.HandleInitResponse(&resp)

	case EnvelopeResponse:
		var resp ResponseEnvelope
		if err := json.Unmarshal(data, &resp); err != nil {
			return true, err
		}
		h.dispatchResponse(&resp)
		return true, nil

	case EnvelopeRequest, EnvelopeInit:
		// Ignored in client role (§4.2).
		return true, nil

	default:
		return false, nil
	}
}

// dispatchResponse fulfills a pending slot (success/error) or forwards to
// the hook/permission channel (hook/permission), per the exact rules in
// §4.2: an unmatched id is silently dropped; a hook/permission response with
// no channel attached is silently dropped.
func (h *ProtocolHandler) dispatchResponse(resp *ResponseEnvelope) {
	switch resp.Status {
	case StatusSuccess, StatusError:
		if resp.ID == nil {
			return
		}
		h.mu.Lock()
		ch, found := h.pending[*resp.ID]
		if found {
			delete(h.pending, *resp.ID)
		}
		h.mu.Unlock()
		if found {
			select {
			case ch <- resp:
			default:
			}
		}

	case StatusHook:
		if h.hookCh == nil || resp.HookID == nil {
			return
		}
		select {
		case h.hookCh <- &HookEvent{HookID: *resp.HookID, Event: resp.Event}:
		default:
		}

	case StatusPermission:
		if h.permissionCh == nil || resp.PermissionID == nil {
			return
		}
		select {
		case h.permissionCh <- &PermissionEvent{PermissionID: *resp.PermissionID, Event: resp.Event}:
		default:
		}
	}
}

// CancelPending removes and closes a pending response slot without
// fulfilling it, used when the transport closes while requests are still
// outstanding.
func (h *ProtocolHandler) CancelPending(id RequestId) {
	h.mu.Lock()
	ch, ok := h.pending[id]
	if ok {
		delete(h.pending, id)
	}
	h.mu.Unlock()
	if ok {
		close(ch)
	}
}

// PendingCount reports the number of outstanding requests, for tests and
// diagnostics.
func (h *ProtocolHandler) PendingCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pending)
}

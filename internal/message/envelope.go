package message

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	// ErrCannotRespond is returned when a reply is requested for a message that is itself a reply.
	ErrCannotRespond = errors.New("cannot respond to a response")
	ErrUnknownKind   = errors.New("unknown message type")
	ErrMissingBody   = errors.New("message body missing")
)

// Envelope is one line on the wire.
type Envelope struct {
	Src  string `json:"src"`
	Dest string `json:"dest"`
	Body Body   `json:"body"`
}

// Kind returns the body kind, or "" for an envelope without body.
func (e Envelope) Kind() Kind {
	if e.Body == nil {
		return ""
	}
	return e.Body.Kind()
}

// MsgID returns the sequence number carried by the body, or 0 when absent.
func (e Envelope) MsgID() int {
	if e.Body == nil || e.Body.Meta().MsgID == nil {
		return 0
	}
	return *e.Body.Meta().MsgID
}

// InReplyTo returns the request sequence number a reply refers to, or 0 when absent.
func (e Envelope) InReplyTo() int {
	id, _ := e.ReplyTarget()
	return id
}

// ReplyTarget is InReplyTo with a flag reporting whether the field was present.
func (e Envelope) ReplyTarget() (int, bool) {
	if e.Body == nil || e.Body.Meta().InReplyTo == nil {
		return 0, false
	}
	return *e.Body.Meta().InReplyTo, true
}

type wireEnvelope struct {
	Src  string          `json:"src"`
	Dest string          `json:"dest"`
	Body json.RawMessage `json:"body"`
}

// MarshalJSON stamps the body type from its variant before encoding.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if e.Body == nil {
		return nil, ErrMissingBody
	}
	e.Body.Meta().Type = e.Body.Kind()
	body, err := json.Marshal(e.Body)
	if err != nil {
		return nil, fmt.Errorf("message: marshal %s body: %w", e.Body.Kind(), err)
	}
	return json.Marshal(wireEnvelope{Src: e.Src, Dest: e.Dest, Body: body})
}

// UnmarshalJSON selects the body variant from the "type" field.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var wire wireEnvelope
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("message: decode envelope: %w", err)
	}
	if len(wire.Body) == 0 || string(wire.Body) == "null" {
		return ErrMissingBody
	}
	kind := Kind(gjson.GetBytes(wire.Body, "type").String())
	body, ok := newBody(kind)
	if !ok {
		return fmt.Errorf("message: %w: %q", ErrUnknownKind, kind)
	}
	if err := json.Unmarshal(wire.Body, body); err != nil {
		return fmt.Errorf("message: decode %s body: %w", kind, err)
	}
	e.Src = wire.Src
	e.Dest = wire.Dest
	e.Body = body
	return nil
}

// Decode parses a single wire line.
func Decode(line []byte) (Envelope, error) {
	var env Envelope
	// Syntax is checked before decoding so malformed lines share one error.
	if !gjson.ValidBytes(line) {
		return Envelope{}, fmt.Errorf("message: decode envelope: invalid json")
	}
	if err := json.Unmarshal(line, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}

// Encode renders env as a single wire line without trailing newline.
func Encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// New builds an outbound request envelope.
func New(src, dest string, msgID int, body Body) Envelope {
	meta := body.Meta()
	meta.Type = body.Kind()
	meta.MsgID = Seq(msgID)
	meta.InReplyTo = nil
	return Envelope{Src: src, Dest: dest, Body: body}
}

// Reply addresses body back to the sender of req, echoing its msg_id as in_reply_to.
func Reply(req Envelope, msgID int, body Body) (Envelope, error) {
	if req.Body == nil {
		return Envelope{}, ErrMissingBody
	}
	if req.Kind().IsReply() {
		return Envelope{}, ErrCannotRespond
	}
	meta := body.Meta()
	meta.Type = body.Kind()
	meta.MsgID = Seq(msgID)
	meta.InReplyTo = nil
	if id := req.Body.Meta().MsgID; id != nil {
		meta.InReplyTo = Seq(*id)
	}
	return Envelope{Src: req.Dest, Dest: req.Src, Body: body}, nil
}

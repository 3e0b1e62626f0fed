package message

import "encoding/json"

// Kind is the value of the body "type" field.
type Kind string

const (
	KindInit        Kind = "init"
	KindInitOk      Kind = "init_ok"
	KindEcho        Kind = "echo"
	KindEchoOk      Kind = "echo_ok"
	KindGenerate    Kind = "generate"
	KindGenerateOk  Kind = "generate_ok"
	KindBroadcast   Kind = "broadcast"
	KindBroadcastOk Kind = "broadcast_ok"
	KindRead        Kind = "read"
	KindReadOk      Kind = "read_ok"
	KindTopology    Kind = "topology"
	KindTopologyOk  Kind = "topology_ok"
)

// IsReply reports whether k is the acknowledgment counterpart of a request kind.
func (k Kind) IsReply() bool {
	switch k {
	case KindInitOk, KindEchoOk, KindGenerateOk, KindBroadcastOk, KindReadOk, KindTopologyOk:
		return true
	default:
		return false
	}
}

// Header carries the fields shared by every body. MsgID and InReplyTo are
// pointers so that 0 is sent on the wire while an absent field stays absent.
type Header struct {
	Type      Kind `json:"type"`
	MsgID     *int `json:"msg_id,omitempty"`
	InReplyTo *int `json:"in_reply_to,omitempty"`
}

// Seq returns a pointer to n for use as a Header sequence number.
func Seq(n int) *int { return &n }

// Meta exposes the shared header of a body.
func (h *Header) Meta() *Header { return h }

// Body is one variant of the envelope payload. Each variant only carries the
// fields of its kind, so nothing absent is ever serialized as null.
type Body interface {
	Kind() Kind
	Meta() *Header
}

// Init assigns the node its id and lists every node in the cluster.
type Init struct {
	Header
	NodeID  string   `json:"node_id"`
	NodeIDs []string `json:"node_ids"`
}

// InitOk acknowledges Init.
type InitOk struct{ Header }

// Echo and EchoOk carry an arbitrary JSON value that is returned verbatim.
type Echo struct {
	Header
	Echo json.RawMessage `json:"echo,omitempty"`
}

type EchoOk struct {
	Header
	Echo json.RawMessage `json:"echo,omitempty"`
}

// Generate asks for a cluster-unique id, returned in GenerateOk.
type Generate struct{ Header }

type GenerateOk struct {
	Header
	ID string `json:"id"`
}

// Broadcast carries one value to disseminate. Clients and peers use the same shape.
type Broadcast struct {
	Header
	Message int `json:"message"`
}

// BroadcastOk acknowledges a Broadcast. Peers match it to pending fan-out by InReplyTo.
type BroadcastOk struct{ Header }

// Read asks for every value seen so far; ReadOk lists them in arrival order.
type Read struct{ Header }

type ReadOk struct {
	Header
	Messages []int `json:"messages"`
}

// Topology maps every node id to its neighbour list.
type Topology struct {
	Header
	Topology map[string][]string `json:"topology"`
}

// TopologyOk acknowledges Topology.
type TopologyOk struct{ Header }

func (*Init) Kind() Kind { return KindInit }
func (*InitOk) Kind() Kind { return KindInitOk }
func (*Echo) Kind() Kind { return KindEcho }
func (*EchoOk) Kind() Kind { return KindEchoOk }
func (*Generate) Kind() Kind { return KindGenerate }
func (*GenerateOk) Kind() Kind { return KindGenerateOk }
func (*Broadcast) Kind() Kind { return KindBroadcast }
func (*BroadcastOk) Kind() Kind { return KindBroadcastOk }
func (*Read) Kind() Kind { return KindRead }
func (*ReadOk) Kind() Kind { return KindReadOk }
func (*Topology) Kind() Kind { return KindTopology }
func (*TopologyOk) Kind() Kind { return KindTopologyOk }

// newBody allocates the zero variant for kind.
func newBody(kind Kind) (Body, bool) {
	switch kind {
	case KindInit:
		return &Init{}, true
	case KindInitOk:
		return &InitOk{}, true
	case KindEcho:
		return &Echo{}, true
	case KindEchoOk:
		return &EchoOk{}, true
	case KindGenerate:
		return &Generate{}, true
	case KindGenerateOk:
		return &GenerateOk{}, true
	case KindBroadcast:
		return &Broadcast{}, true
	case KindBroadcastOk:
		return &BroadcastOk{}, true
	case KindRead:
		return &Read{}, true
	case KindReadOk:
		return &ReadOk{}, true
	case KindTopology:
		return &Topology{}, true
	case KindTopologyOk:
		return &TopologyOk{}, true
	default:
		return nil, false
	}
}

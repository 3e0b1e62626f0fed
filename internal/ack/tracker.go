package ack

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/CyberMesh/gossip-node/internal/message"
)

const (
	defaultMemorySize = 4096
	defaultMemoryTTL  = 10 * time.Second
)

// Outcome classifies an incoming acknowledgment.
type Outcome string

const (
	// OutcomeMatched cleared a pending entry.
	OutcomeMatched Outcome = "matched"
	// OutcomeStale refers to an entry cleared earlier, typically the answer to a resend.
	OutcomeStale Outcome = "stale"
	// OutcomeUnknown matched nothing this node remembers.
	OutcomeUnknown Outcome = "unknown"
)

// Pending is an outbound message awaiting acknowledgment.
type Pending struct {
	Dest     string
	Envelope message.Envelope
	SentAt   time.Time
	Attempts int
}

type pendingKey struct {
	dest  string
	msgID int
}

// TrackerMetrics exposes tracker observability hooks.
type TrackerMetrics interface {
	ObservePendingAcks(int)
	ObserveAck(outcome string)
	ObserveResends(int)
}

// Options configure Tracker.
type Options struct {
	MemorySize int
	MemoryTTL  time.Duration
	Metrics    TrackerMetrics
	Logger     *zap.Logger
}

// Tracker holds every fan-out message sent but not yet acknowledged. It is not
// safe for concurrent use; the event loop owns it.
type Tracker struct {
	entries []Pending
	cleared *expirable.LRU[pendingKey, struct{}]
	metrics TrackerMetrics
	logger  *zap.Logger
}

// NewTracker constructs an empty tracker.
func NewTracker(opts Options) *Tracker {
	size := opts.MemorySize
	if size <= 0 {
		size = defaultMemorySize
	}
	ttl := opts.MemoryTTL
	if ttl <= 0 {
		ttl = defaultMemoryTTL
	}
	return &Tracker{
		cleared: expirable.NewLRU[pendingKey, struct{}](size, nil, ttl),
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
}

// Register starts tracking env as sent at now. The caller transmits env right after.
func (t *Tracker) Register(env message.Envelope, now time.Time) {
	t.entries = append(t.entries, Pending{
		Dest:     env.Dest,
		Envelope: env,
		SentAt:   now,
		Attempts: 1,
	})
	t.observeDepth()
}

// Acknowledge removes the first entry sent to src with the given msg_id.
// Misses are expected under retry and only classified.
func (t *Tracker) Acknowledge(src string, msgID int) Outcome {
	key := pendingKey{dest: src, msgID: msgID}
	for i, p := range t.entries {
		if p.Dest != src || p.Envelope.MsgID() != msgID {
			continue
		}
		t.entries = append(t.entries[:i], t.entries[i+1:]...)
		t.cleared.Add(key, struct{}{})
		t.observeAck(OutcomeMatched)
		t.observeDepth()
		if t.logger != nil {
			t.logger.Debug("ack cleared pending message",
				zap.String("dest", src),
				zap.Int("msg_id", msgID),
				zap.Int("attempts", p.Attempts))
		}
		return OutcomeMatched
	}
	outcome := OutcomeUnknown
	if t.cleared.Contains(key) {
		outcome = OutcomeStale
	}
	t.observeAck(outcome)
	if t.logger != nil {
		t.logger.Debug("ack matched no pending message",
			zap.String("src", src),
			zap.Int("in_reply_to", msgID),
			zap.String("outcome", string(outcome)))
	}
	return outcome
}

// Sweep returns every entry whose age is at least threshold, refreshing its
// timestamp. Younger entries are left untouched. Order of registration is kept.
func (t *Tracker) Sweep(now time.Time, threshold time.Duration) []message.Envelope {
	var overdue []message.Envelope
	for i := range t.entries {
		p := &t.entries[i]
		if now.Sub(p.SentAt) < threshold {
			continue
		}
		p.SentAt = now
		p.Attempts++
		overdue = append(overdue, p.Envelope)
	}
	if len(overdue) > 0 && t.metrics != nil {
		t.metrics.ObserveResends(len(overdue))
	}
	return overdue
}

// Len returns the number of pending entries.
func (t *Tracker) Len() int {
	return len(t.entries)
}

// Snapshot returns a copy of the pending entries.
func (t *Tracker) Snapshot() []Pending {
	out := make([]Pending, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Tracker) observeAck(outcome Outcome) {
	if t.metrics != nil {
		t.metrics.ObserveAck(string(outcome))
	}
}

func (t *Tracker) observeDepth() {
	if t.metrics != nil {
		t.metrics.ObservePendingAcks(len(t.entries))
	}
}

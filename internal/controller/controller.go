package controller

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CyberMesh/gossip-node/internal/ack"
	"github.com/CyberMesh/gossip-node/internal/message"
	"github.com/CyberMesh/gossip-node/internal/metrics"
	"github.com/CyberMesh/gossip-node/internal/state"
)

const defaultRetryThreshold = 30 * time.Millisecond

var (
	// ErrNotInitialized is returned when a value must be fanned out before init.
	ErrNotInitialized = errors.New("node identity not initialized")
	// ErrNotInTopology is returned when the topology has no entry for this node.
	ErrNotInTopology = errors.New("node missing from topology")
)

// Controller owns the node state and turns each inbound envelope into the
// envelopes to transmit. It is not safe for concurrent use; the event loop
// serializes Handle and Retry.
type Controller struct {
	identity   state.Identity
	topology   *state.Topology
	seen       *state.Seen
	tracker    *ack.Tracker
	threshold  time.Duration
	nextMsgID  int
	now        func() time.Time
	newID      func() string
	metrics    *metrics.Recorder
	baseLogger *zap.Logger
	logger     *zap.Logger
}

// Options configure Controller construction.
type Options struct {
	RetryThreshold time.Duration
	AckMemorySize  int
	AckMemoryTTL   time.Duration
	// Now and NewID default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

// New constructs a controller.
func New(recorder *metrics.Recorder, logger *zap.Logger, opts Options) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := opts.RetryThreshold
	if threshold <= 0 {
		threshold = defaultRetryThreshold
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Controller{
		topology: state.NewTopology(),
		seen:     state.NewSeen(),
		tracker: ack.NewTracker(ack.Options{
			MemorySize: opts.AckMemorySize,
			MemoryTTL:  opts.AckMemoryTTL,
			Metrics:    recorder,
			Logger:     logger.Named("ack"),
		}),
		threshold:  threshold,
		now:        now,
		newID:      newID,
		metrics:    recorder,
		baseLogger: logger,
		logger:     logger,
	}
}

// Handle applies env to the node state and returns the envelopes to send:
// fan-out broadcasts first, then the direct reply. The returned envelopes are
// valid to transmit even when err is non-nil. Reply kinds never produce output
// and yield message.ErrCannotRespond after their side effects are applied.
func (c *Controller) Handle(env message.Envelope) ([]message.Envelope, error) {
	if env.Body == nil {
		return nil, message.ErrMissingBody
	}
	start := c.now()
	kind := string(env.Kind())
	c.metrics.ObserveReceived(kind)
	defer func() { c.metrics.ObserveHandled(kind, c.now().Sub(start)) }()

	c.logger.Debug("received", zap.String("src", env.Src), zap.String("type", kind), zap.Int("msg_id", env.MsgID()))

	var (
		out      []message.Envelope
		applyErr error
	)
	switch body := env.Body.(type) {
	case *message.Init:
		applyErr = c.applyInit(body)
	case *message.Topology:
		c.applyTopology(body)
	case *message.Broadcast:
		out, applyErr = c.applyBroadcast(env.Src, body.Message)
	case *message.BroadcastOk:
		if target, ok := env.ReplyTarget(); ok {
			c.tracker.Acknowledge(env.Src, target)
		}
	}

	reply, err := c.respond(env)
	if err != nil {
		return out, err
	}
	out = append(out, reply)
	return out, applyErr
}

// Retry resends every fan-out message still unacknowledged after the threshold.
func (c *Controller) Retry(now time.Time) []message.Envelope {
	c.metrics.ObserveRetryTick()
	overdue := c.tracker.Sweep(now, c.threshold)
	for _, env := range overdue {
		c.logger.Debug("resending unacknowledged broadcast",
			zap.String("dest", env.Dest),
			zap.Int("msg_id", env.MsgID()))
	}
	return overdue
}

// NodeID returns the id assigned by init.
func (c *Controller) NodeID() string { return c.identity.ID() }

// Seen returns the observed values in insertion order.
func (c *Controller) Seen() []int { return c.seen.Values() }

// Pending returns the number of unacknowledged fan-out messages.
func (c *Controller) Pending() int { return c.tracker.Len() }

func (c *Controller) applyInit(body *message.Init) error {
	if err := c.identity.Set(body.NodeID, body.NodeIDs); err != nil {
		c.logger.Warn("ignoring repeated init", zap.String("node_id", body.NodeID), zap.String("current", c.identity.ID()))
		c.metrics.ObserveHandleError("repeated_init")
		return fmt.Errorf("controller: init: %w", err)
	}
	c.logger = c.baseLogger.With(zap.String("node_id", c.identity.ID()))
	c.logger.Info("init complete", zap.Strings("peers", c.identity.Peers()))
	return nil
}

func (c *Controller) applyTopology(body *message.Topology) {
	c.topology.Replace(body.Topology)
	c.metrics.SetTopologyNodes(c.topology.Nodes())
	neighbors, _ := c.topology.Neighbors(c.identity.ID())
	c.logger.Info("topology applied", zap.Int("nodes", c.topology.Nodes()), zap.Strings("neighbors", neighbors))
}

func (c *Controller) applyBroadcast(sender string, value int) ([]message.Envelope, error) {
	fresh := c.seen.Insert(value)
	c.metrics.ObserveValue(fresh)
	if !fresh {
		c.logger.Debug("duplicate broadcast", zap.Int("value", value), zap.String("src", sender))
		return nil, nil
	}
	c.metrics.SetSeenValues(c.seen.Len())
	c.logger.Debug("broadcast received", zap.Int("value", value), zap.String("src", sender))

	targets, err := c.targets(sender)
	if err != nil {
		c.metrics.ObserveHandleError("fanout")
		c.logger.Error("cannot fan out broadcast", zap.Int("value", value), zap.Error(err))
		return nil, fmt.Errorf("controller: fan-out of %d: %w", value, err)
	}
	now := c.now()
	out := make([]message.Envelope, 0, len(targets))
	for _, dest := range targets {
		env := message.New(c.identity.ID(), dest, FanoutMsgID(dest, value), &message.Broadcast{Message: value})
		c.tracker.Register(env, now)
		out = append(out, env)
		c.logger.Debug("broadcasting", zap.Int("value", value), zap.String("dest", dest))
	}
	c.metrics.ObserveFanout(len(out))
	return out, nil
}

// targets resolves the fan-out set for a value received from sender. Before
// any topology arrives there is nothing to fan out to.
func (c *Controller) targets(sender string) ([]string, error) {
	if !c.identity.Initialized() {
		return nil, ErrNotInitialized
	}
	if !c.topology.Ready() {
		return nil, nil
	}
	neighbors, ok := c.topology.Neighbors(c.identity.ID())
	if !ok {
		return nil, ErrNotInTopology
	}
	return fanoutTargets(neighbors, sender), nil
}

func (c *Controller) respond(req message.Envelope) (message.Envelope, error) {
	var body message.Body
	switch b := req.Body.(type) {
	case *message.Init:
		body = &message.InitOk{}
	case *message.Echo:
		body = &message.EchoOk{Echo: b.Echo}
	case *message.Generate:
		body = &message.GenerateOk{ID: c.newID()}
	case *message.Broadcast:
		body = &message.BroadcastOk{}
	case *message.Read:
		body = &message.ReadOk{Messages: c.seen.Values()}
	case *message.Topology:
		body = &message.TopologyOk{}
	default:
		return message.Envelope{}, message.ErrCannotRespond
	}
	c.nextMsgID++
	return message.Reply(req, c.nextMsgID, body)
}

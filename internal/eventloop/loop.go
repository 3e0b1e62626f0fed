package eventloop

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/CyberMesh/gossip-node/internal/message"
)

// Handler is the node state machine driven by the loop.
type Handler interface {
	Handle(env message.Envelope) ([]message.Envelope, error)
	Retry(now time.Time) []message.Envelope
}

// Sink transmits outbound envelopes.
type Sink interface {
	Write(envs ...message.Envelope) error
}

// Options configure Loop.
type Options struct {
	Inbound <-chan message.Envelope
	Ticks   <-chan time.Time
	Sink    Sink
	Logger  *zap.Logger
}

// Loop merges inbound envelopes and retry ticks into one serialized consumer.
// Each event is handled and its output written before the next is taken, so
// the handler never observes concurrent calls.
type Loop struct {
	handler Handler
	inbound <-chan message.Envelope
	ticks   <-chan time.Time
	sink    Sink
	logger  *zap.Logger
}

// New constructs a loop.
func New(handler Handler, opts Options) (*Loop, error) {
	if handler == nil {
		return nil, errors.New("eventloop: handler required")
	}
	if opts.Inbound == nil {
		return nil, errors.New("eventloop: inbound channel required")
	}
	if opts.Sink == nil {
		return nil, errors.New("eventloop: sink required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		handler: handler,
		inbound: opts.Inbound,
		ticks:   opts.Ticks,
		sink:    opts.Sink,
		logger:  logger,
	}, nil
}

// Run consumes events until the inbound channel closes or ctx is done. Only a
// failing sink ends the loop with an error.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case env, ok := <-l.inbound:
			if !ok {
				l.logger.Info("input closed, stopping")
				return nil
			}
			out, err := l.handler.Handle(env)
			if werr := l.sink.Write(out...); werr != nil {
				return werr
			}
			l.report(env, err)
		case now := <-l.ticks:
			if err := l.sink.Write(l.handler.Retry(now)...); err != nil {
				return err
			}
		}
	}
}

func (l *Loop) report(env message.Envelope, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, message.ErrCannotRespond) {
		l.logger.Debug("no reply for response message", zap.String("src", env.Src), zap.String("type", string(env.Kind())))
		return
	}
	l.logger.Warn("message handled with error",
		zap.String("src", env.Src),
		zap.String("type", string(env.Kind())),
		zap.Int("msg_id", env.MsgID()),
		zap.Error(err))
}

package transport

import (
	"bufio"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/CyberMesh/gossip-node/internal/message"
	"github.com/CyberMesh/gossip-node/internal/metrics"
)

// Writer emits envelopes as newline-delimited JSON. It is used from the event
// loop only.
type Writer struct {
	out     *bufio.Writer
	logger  *zap.Logger
	metrics *metrics.Recorder
}

// NewWriter wraps dst.
func NewWriter(dst io.Writer, logger *zap.Logger, recorder *metrics.Recorder) *Writer {
	return &Writer{out: bufio.NewWriter(dst), logger: logger, metrics: recorder}
}

// Write encodes every envelope on its own line and flushes once. An envelope
// that cannot be encoded is skipped; write failures abort.
func (w *Writer) Write(envs ...message.Envelope) error {
	if len(envs) == 0 {
		return nil
	}
	for _, env := range envs {
		line, err := message.Encode(env)
		if err != nil {
			if w.logger != nil {
				w.logger.Error("failed to encode envelope", zap.String("dest", env.Dest), zap.Error(err))
			}
			continue
		}
		if _, err := w.out.Write(line); err != nil {
			return fmt.Errorf("transport: write: %w", err)
		}
		if err := w.out.WriteByte('\n'); err != nil {
			return fmt.Errorf("transport: write: %w", err)
		}
		w.metrics.ObserveSent(string(env.Kind()))
	}
	if err := w.out.Flush(); err != nil {
		return fmt.Errorf("transport: flush: %w", err)
	}
	return nil
}

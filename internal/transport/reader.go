package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/CyberMesh/gossip-node/internal/message"
	"github.com/CyberMesh/gossip-node/internal/metrics"
)

const defaultMaxLineBytes = 1 << 20

// Reader decodes newline-delimited envelopes and publishes them on a channel.
type Reader struct {
	src      io.Reader
	maxLine  int
	logger   *zap.Logger
	metrics  *metrics.Recorder
	envelope chan message.Envelope
}

// ReaderOptions configure Reader.
type ReaderOptions struct {
	MaxLineBytes int
	Logger       *zap.Logger
	Metrics      *metrics.Recorder
}

// NewReader wraps src.
func NewReader(src io.Reader, opts ReaderOptions) *Reader {
	maxLine := opts.MaxLineBytes
	if maxLine <= 0 {
		maxLine = defaultMaxLineBytes
	}
	return &Reader{
		src:      src,
		maxLine:  maxLine,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		envelope: make(chan message.Envelope),
	}
}

// Envelopes is closed when Run returns.
func (r *Reader) Envelopes() <-chan message.Envelope {
	return r.envelope
}

// Run reads until EOF, a read error or ctx cancellation. Lines that fail to
// decode are logged and skipped. EOF returns nil.
func (r *Reader) Run(ctx context.Context) error {
	defer close(r.envelope)
	scanner := bufio.NewScanner(r.src)
	initial := 64 * 1024
	if initial > r.maxLine {
		initial = r.maxLine
	}
	scanner.Buffer(make([]byte, 0, initial), r.maxLine)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		env, err := message.Decode(line)
		if err != nil {
			r.metrics.ObserveDecodeError()
			if r.logger != nil {
				r.logger.Warn("dropping undecodable line", zap.Error(err), zap.ByteString("line", line))
			}
			continue
		}
		select {
		case r.envelope <- env:
		case <-ctx.Done():
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("transport: read: %w", err)
	}
	return nil
}

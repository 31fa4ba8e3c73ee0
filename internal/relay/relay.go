// Package relay moves lines between the telnet session's queues and the
// world outside it: spot lines out to a sink, operator text in from stdin
// or the API.
package relay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rsclarke/dxrelay/internal/logging"
	"github.com/rsclarke/dxrelay/internal/metrics"
	"github.com/rsclarke/dxrelay/internal/queue"
	"go.uber.org/zap"
)

var (
	// ErrSpotsClosed is returned by Forward when the session's spot queue
	// has been closed.
	ErrSpotsClosed = errors.New("relay: spot queue closed")
	// ErrInboxClosed is returned by Pump when no producer remains.
	ErrInboxClosed = errors.New("relay: inbox closed")
)

// Sink receives forwarded spot lines.
type Sink interface {
	Deliver(ctx context.Context, line string) error
}

// Forward delivers every line from spots to sink, in order. A failed
// delivery is logged and the line dropped. Forward returns only when ctx
// is done or spots is closed, and detaches from spots on the way out so
// the producer sees the receiver is gone.
func Forward(ctx context.Context, spots *queue.Queue[string], sink Sink, logger *zap.Logger, m *metrics.Collector) error {
	defer spots.Detach()
	logger = logger.With(logging.Component("forward"))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-spots.Out():
			if !ok {
				return ErrSpotsClosed
			}
			if err := sink.Deliver(ctx, line); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("delivery failed", logging.Line(line), zap.Error(err))
				m.SinkDelivery("failed")
				continue
			}
			m.SinkDelivery("ok")
		}
	}
}

// Pump moves queued operator text from inbox to the session's outbound
// queue. When inbox is closed, outbound is closed too and ErrInboxClosed
// returned.
func Pump(ctx context.Context, inbox, outbound *queue.Queue[string]) error {
	defer inbox.Detach()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case text, ok := <-inbox.Out():
			if !ok {
				outbound.Close()
				return ErrInboxClosed
			}
			if err := outbound.Push(text); err != nil {
				return fmt.Errorf("relay: outbound: %w", err)
			}
		}
	}
}

// ReadLines pushes each non-empty line of r onto dst. It returns nil at end
// of input. Cancelling ctx stops delivery but cannot interrupt a blocked
// read on r.
func ReadLines(ctx context.Context, r io.Reader, dst *queue.Queue[string]) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := dst.Push(line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

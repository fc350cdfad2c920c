package client

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Iron-Ham/quorum/internal/errors"
	"github.com/Iron-Ham/quorum/internal/event"
	"github.com/Iron-Ham/quorum/internal/logging"
	"github.com/Iron-Ham/quorum/internal/stream"
)

// StreamOpener starts one server-side pipeline run and returns its frame
// transport. Each retry opens a fresh stream; there is no resume.
type StreamOpener func(ctx context.Context, conversationID, content string) (io.ReadCloser, error)

// RunnerConfig bounds the whole-stream retry loop.
type RunnerConfig struct {
	// MaxRetries is the number of restarts allowed after the first attempt.
	MaxRetries int
	// Backoff is the fixed wait between attempts.
	Backoff time.Duration
}

// StreamRunner drives stream consumption: it opens the transport, feeds
// decoded frames into the state store, restarts the whole stream on transport
// failure, and stops cooperatively when its context is cancelled. At most one
// stream is active per runner; starting a new one cancels and awaits the
// previous one first.
type StreamRunner struct {
	open   StreamOpener
	state  *State
	bus    *event.Bus
	log    *retryLog
	cfg    RunnerConfig
	logger *logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewStreamRunner creates a runner. bus may be nil when nothing observes the
// stream lifecycle.
func NewStreamRunner(open StreamOpener, state *State, bus *event.Bus, cfg RunnerConfig, logger *logging.Logger) *StreamRunner {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &StreamRunner{
		open:   open,
		state:  state,
		bus:    bus,
		log:    newRetryLog(),
		cfg:    cfg,
		logger: logger,
	}
}

// Start begins consuming a stream for the conversation. If a stream is still
// active it is cancelled and awaited before the new one begins. Start returns
// once the new stream is launched; use Await to block until it settles.
func (r *StreamRunner) Start(ctx context.Context, conversationID, content string) {
	r.mu.Lock()
	prevCancel, prevDone := r.cancel, r.done
	r.mu.Unlock()

	if prevDone != nil {
		if prevCancel != nil {
			prevCancel()
		}
		<-prevDone
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	r.mu.Lock()
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	r.log.reset(conversationID)
	go r.run(runCtx, conversationID, content, done)
}

// Cancel stops the active stream, if any, and waits for it to settle.
func (r *StreamRunner) Cancel() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Await blocks until the active stream settles. It returns immediately when
// nothing is running.
func (r *StreamRunner) Await() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Attempts returns the attempt history of the last Start for a conversation.
func (r *StreamRunner) Attempts(conversationID string) []Attempt {
	return r.log.Attempts(conversationID)
}

func (r *StreamRunner) run(ctx context.Context, conversationID, content string, done chan struct{}) {
	defer close(done)
	logger := r.logger.WithConversation(conversationID)

	var lastErr error
	maxAttempts := r.cfg.MaxRetries + 1

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		r.state.BeginAttempt(attempt)
		r.publish(event.NewStreamStartedEvent(conversationID, attempt))

		err := r.consume(ctx, conversationID, content)
		if err == nil {
			// Terminal event observed. The server may have reported its
			// own failure; the distinction lives in the status.
			r.log.record(conversationID, attempt, "")
			status := r.state.Status()
			outcome := "complete"
			if status.LastEvent == stream.KindError {
				outcome = "error"
			}
			r.publish(event.NewStreamFinishedEvent(conversationID, outcome, status.Error))
			return
		}

		if ctx.Err() != nil {
			logger.Info("stream cancelled", "attempt", attempt)
			r.state.MarkCancelled()
			r.log.record(conversationID, attempt, errors.ErrStreamCancelled.Error())
			r.publish(event.NewStreamFinishedEvent(conversationID, "cancelled", ""))
			return
		}

		lastErr = err
		r.log.record(conversationID, attempt, err.Error())
		logger.Warn("stream attempt failed", "attempt", attempt, "error", err.Error())

		if !errors.IsRetryable(err) {
			r.state.MarkTransportFailure(err.Error())
			r.publish(event.NewStreamFinishedEvent(conversationID, "error", err.Error()))
			return
		}

		if attempt < maxAttempts {
			select {
			case <-time.After(r.cfg.Backoff):
			case <-ctx.Done():
				r.state.MarkCancelled()
				r.publish(event.NewStreamFinishedEvent(conversationID, "cancelled", ""))
				return
			}
		}
	}

	exhausted := fmt.Errorf("%w: %s", errors.ErrRetryBudgetExhausted, lastErr.Error())
	r.state.MarkTransportFailure(exhausted.Error())
	r.publish(event.NewStreamFinishedEvent(conversationID, "error", exhausted.Error()))
}

// consume reads one stream to its terminal event. A nil return means a
// terminal event was observed; any other failure is classified for the retry
// loop: transport failures come back as retryable stream errors, while open
// failures keep their own classification. Cancellation surfaces as the
// context's error.
func (r *StreamRunner) consume(ctx context.Context, conversationID, content string) error {
	body, err := r.open(ctx, conversationID, content)
	if err != nil {
		if _, ok := err.(errors.QuorumError); ok {
			return err
		}
		return errors.NewStreamError("opening stream", err)
	}
	defer body.Close()

	reader := stream.NewFrameReader(body)
	for {
		// Cooperative cancellation: checked before each frame is processed.
		if err := ctx.Err(); err != nil {
			return err
		}

		ev, err := reader.Next()
		if err == io.EOF {
			return errors.NewStreamError("stream ended before terminal event", nil)
		}
		if err != nil {
			return errors.NewStreamError("reading stream", err)
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		r.state.Apply(ev)
		r.publish(event.NewStreamEventReceived(conversationID, string(ev.Type)))

		if ev.Type.Terminal() {
			return nil
		}
	}
}

func (r *StreamRunner) publish(ev event.Event) {
	if r.bus != nil {
		r.bus.Publish(ev)
	}
}

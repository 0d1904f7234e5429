// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lmstudio

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// STREAM STATE
// =============================================================================

// State is the lifecycle position of a Stream.
type State int32

const (
	StateIdle State = iota
	StateRequestSent
	StateStreaming
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequestSent:
		return "request_sent"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further deltas can follow.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

const (
	dataPrefix   = "data: "
	doneSentinel = "data: [DONE]"

	// readBufferSize is the size of each body read. Lines may span reads.
	readBufferSize = 4096

	// maxLoggedPayload caps how much of a malformed line is logged.
	maxLoggedPayload = 120
)

// =============================================================================
// STREAM
// =============================================================================

// Stream is a lazy, finite, non-restartable sequence of deltas read from one
// chat completion response. Next must be called from a single goroutine;
// State and Close are safe to call concurrently.
type Stream struct {
	parent  context.Context
	ctx     context.Context
	release context.CancelFunc
	stop    func() bool

	body   io.ReadCloser
	logger *zap.Logger

	lines   LineBuffer
	pending []string
	readBuf []byte
	eof     bool

	acc    strings.Builder
	result Result
	start  time.Time

	state     atomic.Int32
	closeOnce sync.Once
	mu        sync.Mutex
}

func newStream(parent, ctx context.Context, release context.CancelFunc, model string, logger *zap.Logger) *Stream {
	s := &Stream{
		parent:  parent,
		ctx:     ctx,
		release: release,
		logger:  logger,
		readBuf: make([]byte, readBufferSize),
		start:   time.Now(),
	}
	s.result.Model = model
	s.state.Store(int32(StateRequestSent))
	return s
}

// attach binds the response body. Cancelling ctx closes it, which unblocks
// any Read in progress.
func (s *Stream) attach(body io.ReadCloser) {
	s.body = body
	s.stop = context.AfterFunc(s.ctx, func() {
		s.closeBody()
	})
}

// State returns the current lifecycle state.
func (s *Stream) State() State {
	return State(s.state.Load())
}

// Next returns the next delta. It returns io.EOF once the stream completed
// and the terminal error otherwise. After a terminal state every call
// returns the same error without reading.
func (s *Stream) Next() (Delta, error) {
	for {
		if st := s.State(); st.Terminal() {
			return Delta{}, s.terminalErr()
		}

		if err := s.ctx.Err(); err != nil {
			return Delta{}, s.abort(err)
		}

		if len(s.pending) > 0 {
			line := s.pending[0]
			s.pending = s.pending[1:]

			delta, ok, err := s.handleLine(line)
			if err != nil {
				return Delta{}, s.finish(StateFailed, err)
			}
			if s.State().Terminal() {
				return Delta{}, s.terminalErr()
			}
			if ok {
				return delta, nil
			}
			continue
		}

		if s.eof {
			return Delta{}, s.finish(StateCompleted, nil)
		}

		if err := s.read(); err != nil {
			if s.ctx.Err() != nil {
				return Delta{}, s.abort(s.ctx.Err())
			}
			return Delta{}, s.finish(StateFailed, &ClientError{
				Type:    ErrTypeConnection,
				Message: "stream interrupted",
				Cause:   err,
			})
		}
	}
}

// read performs one body read and queues the lines it completes.
func (s *Stream) read() error {
	n, err := s.body.Read(s.readBuf)
	if n > 0 {
		s.state.CompareAndSwap(int32(StateRequestSent), int32(StateStreaming))
		s.pending = append(s.pending, s.lines.Write(s.readBuf[:n])...)
	}
	if errors.Is(err, io.EOF) {
		s.eof = true
		if tail, ok := s.lines.Flush(); ok {
			s.pending = append(s.pending, tail)
		}
		return nil
	}
	return err
}

// handleLine interprets one complete line. ok is true when a delta was
// produced. A returned error is fatal; malformed JSON is not.
func (s *Stream) handleLine(line string) (Delta, bool, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Delta{}, false, nil
	}
	if trimmed == doneSentinel {
		s.finish(StateCompleted, nil)
		return Delta{}, false, nil
	}
	if !strings.HasPrefix(line, dataPrefix) {
		return Delta{}, false, nil
	}

	payload := line[len(dataPrefix):]
	var chunk StreamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		s.mu.Lock()
		s.result.ParseFailures++
		failures := s.result.ParseFailures
		s.mu.Unlock()
		s.logger.Warn("STREAM_PARSE_FAILED",
			zap.Error(&ClientError{Type: ErrTypeParseFailed, Message: "malformed stream event", Cause: err}),
			zap.String("payload", truncate(payload, maxLoggedPayload)),
			zap.Int("parse_failures", failures),
		)
		return Delta{}, false, nil
	}

	if chunk.Error != nil {
		return Delta{}, false, &ClientError{
			Type:    ErrTypeRequestFailed,
			Message: "server reported error: " + chunk.Error.Message,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if State(s.state.Load()).Terminal() {
		return Delta{}, false, nil
	}

	if reason := chunk.GetFinishReason(); reason != "" {
		s.result.FinishReason = reason
	}

	content := chunk.GetContent()
	if content == "" {
		return Delta{}, false, nil
	}

	if s.result.Deltas == 0 {
		s.result.FirstDelta = time.Since(s.start)
	}
	delta := Delta{Index: s.result.Deltas, Content: content}
	s.result.Deltas++
	s.acc.WriteString(content)
	return delta, true, nil
}

// abort moves the stream to a terminal state after its context ended. A
// deadline from the client's own stream timeout is a failure. Anything from
// the caller's context is a cancellation.
func (s *Stream) abort(ctxErr error) error {
	if errors.Is(ctxErr, context.DeadlineExceeded) && s.parent.Err() == nil {
		return s.finish(StateFailed, &ClientError{
			Type:    ErrTypeTimeout,
			Message: "stream timed out",
			Cause:   ctxErr,
		})
	}
	if parentErr := s.parent.Err(); parentErr != nil {
		ctxErr = parentErr
	}
	return s.finish(StateCancelled, ctxErr)
}

// finish records the terminal state exactly once and releases resources.
func (s *Stream) finish(state State, err error) error {
	s.mu.Lock()
	if State(s.state.Load()).Terminal() {
		s.mu.Unlock()
		return s.terminalErr()
	}
	s.result.State = state
	s.result.Err = err
	s.result.Content = s.acc.String()
	s.result.Elapsed = time.Since(s.start)
	s.state.Store(int32(state))
	r := s.result
	s.mu.Unlock()

	s.cleanup()

	fields := []zap.Field{
		zap.String("model", r.Model),
		zap.Stringer("state", state),
		zap.Int("deltas", r.Deltas),
		zap.Int("parse_failures", r.ParseFailures),
		zap.Duration("elapsed", r.Elapsed),
	}
	if err != nil && state == StateFailed {
		s.logger.Warn("STREAM_FAILED", append(fields, zap.Error(err))...)
	} else {
		s.logger.Debug("STREAM_DONE", fields...)
	}
	return s.terminalErr()
}

func (s *Stream) terminalErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result.Err != nil {
		return s.result.Err
	}
	return io.EOF
}

func (s *Stream) cleanup() {
	if s.stop != nil {
		s.stop()
	}
	s.closeBody()
	if s.release != nil {
		s.release()
	}
}

func (s *Stream) closeBody() {
	s.closeOnce.Do(func() {
		if s.body != nil {
			s.body.Close()
		}
	})
}

// Close abandons the stream. A stream closed before termination ends in
// StateCancelled. Close is idempotent.
func (s *Stream) Close() error {
	if !s.State().Terminal() {
		s.finish(StateCancelled, context.Canceled)
	}
	return nil
}

// Result returns the fold so far. After termination it is final: Content is
// the ordered concatenation of every delta returned by Next.
func (s *Stream) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.result
	if !State(s.state.Load()).Terminal() {
		r.Content = s.acc.String()
		r.State = State(s.state.Load())
	}
	return r
}

// Collect drains s, calling fn for each delta in order, and returns the
// final Result. The error is nil when the stream completed normally.
func Collect(s *Stream, fn func(Delta)) (Result, error) {
	defer s.Close()
	for {
		delta, err := s.Next()
		if errors.Is(err, io.EOF) {
			return s.Result(), nil
		}
		if err != nil {
			return s.Result(), err
		}
		if fn != nil {
			fn(delta)
		}
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

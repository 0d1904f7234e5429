// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultFPS is the streaming re-render rate.
const DefaultFPS = 30

// Throttle limits how often a Renderer runs during streaming. Update renders
// only when a frame is available; Flush always renders, so the final frame
// is exactly Render(final).
type Throttle struct {
	r       Renderer
	limiter *rate.Limiter

	mu   sync.Mutex
	in   string
	out  string
	have bool
}

// NewThrottle wraps r, allowing at most fps renders per second.
func NewThrottle(r Renderer, fps int) *Throttle {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Throttle{
		r:       r,
		limiter: rate.NewLimiter(rate.Every(time.Second/time.Duration(fps)), 1),
	}
}

// Update renders cumulative if the frame budget allows. rendered is false
// when the call was skipped; the previous output is returned then.
func (t *Throttle) Update(cumulative string) (out string, rendered bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.have && cumulative == t.in {
		return t.out, false, nil
	}
	if !t.limiter.Allow() {
		return t.out, false, nil
	}
	return t.renderLocked(cumulative)
}

// Flush renders cumulative unconditionally, unless it is already the last
// rendered input.
func (t *Throttle) Flush(cumulative string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.have && cumulative == t.in {
		return t.out, nil
	}
	out, _, err := t.renderLocked(cumulative)
	return out, err
}

// Reset forgets the cached frame.
func (t *Throttle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.in, t.out, t.have = "", "", false
}

func (t *Throttle) renderLocked(cumulative string) (string, bool, error) {
	out, err := t.r.Render(cumulative)
	if err != nil {
		return out, true, err
	}
	t.in, t.out, t.have = cumulative, out, true
	return out, true, nil
}

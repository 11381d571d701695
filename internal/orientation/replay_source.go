// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/relabs-tech/mocap_retarget/internal/frame"
)

// ReplaySource plays back a recorded session file (JSON lines or CSV) at a
// fixed interval, optionally looping.
type ReplaySource struct {
	path string
	loop bool

	mu     sync.Mutex
	stream *StreamSource
	closed bool
	done   chan struct{}

	ticker *time.Ticker // nil when interval is zero
	seq    uint64
	read   int // lines decoded or dropped since the last rewind
	passes int
}

// OpenReplay opens path for playback. An interval of zero replays as fast
// as the consumer reads.
func OpenReplay(path string, interval time.Duration, loop bool) (*ReplaySource, error) {
	r := &ReplaySource{path: path, loop: loop, done: make(chan struct{})}
	if _, err := r.rewind(); err != nil {
		return nil, err
	}
	if interval > 0 {
		r.ticker = time.NewTicker(interval)
	}
	log.Printf("orientation: replaying %s (loop=%v)", path, loop)
	return r, nil
}

func (r *ReplaySource) rewind() (*StreamSource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, io.EOF
	}
	if r.stream != nil {
		r.stream.Close()
	}
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	r.stream = NewStreamSource("replay "+r.path, f)
	r.read = 0
	r.passes++
	return r.stream, nil
}

func (r *ReplaySource) current() *StreamSource {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream
}

func (r *ReplaySource) Next(ctx context.Context) (frame.Set, error) {
	if r.ticker != nil {
		select {
		case <-ctx.Done():
			return frame.Set{}, ctx.Err()
		case <-r.done:
			return frame.Set{}, io.EOF
		case <-r.ticker.C:
		}
	}

	stream := r.current()
	for {
		f, err := stream.Next(ctx)
		switch {
		case err == nil:
			r.read++
			r.seq++
			f.Seq = r.seq
			return f, nil
		case errors.Is(err, ErrMalformed):
			r.read++
			return frame.Set{}, err
		case errors.Is(err, io.EOF) && r.loop && r.read > 0:
			if stream, err = r.rewind(); err != nil {
				return frame.Set{}, err
			}
		default:
			return frame.Set{}, err
		}
	}
}

// Passes returns how many times the file has been opened.
func (r *ReplaySource) Passes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.passes
}

// Close stops playback; Next returns io.EOF from then on.
func (r *ReplaySource) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	close(r.done)
	if r.ticker != nil {
		r.ticker.Stop()
	}
	return r.stream.Close()
}

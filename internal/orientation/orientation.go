// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package orientation provides the sources that feed per-limb orientation
// frames into the retargeting loop.
package orientation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/relabs-tech/mocap_retarget/internal/frame"
)

// ErrMalformed wraps input that could not be decoded into a frame. Pump
// drops such frames and keeps going.
var ErrMalformed = errors.New("orientation: malformed frame")

// Source is anything that can provide frames over time. Next blocks until
// a frame is available, ctx is done, or the source is exhausted (io.EOF).
type Source interface {
	Next(ctx context.Context) (frame.Set, error)
}

// Sink receives frames from Pump. *frame.Mailbox is the usual sink.
type Sink interface {
	Put(frame.Set)
}

// Pump moves frames from src to sink until ctx is done or src ends.
// Malformed frames are logged and skipped. If src is an io.Closer it is
// closed when ctx ends so a blocked read returns.
func Pump(ctx context.Context, src Source, sink Sink) error {
	if c, ok := src.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { c.Close() })
		defer stop()
	}

	var dropped uint64
	for {
		s, err := src.Next(ctx)
		switch {
		case err == nil:
			sink.Put(s)
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, io.EOF):
			log.Printf("orientation: source exhausted (%d malformed frames dropped)", dropped)
			return nil
		case errors.Is(err, ErrMalformed):
			dropped++
			log.Printf("orientation: dropping frame: %v", err)
		default:
			return fmt.Errorf("orientation: read frame: %w", err)
		}
	}
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/relabs-tech/mocap_retarget/internal/frame"
)

// maxLine bounds one encoded frame. Twelve quaternions in JSON are well
// under 2 KiB.
const maxLine = 64 * 1024

// StreamSource decodes line-delimited frames from a byte stream. Lines
// starting with '{' are JSON frames, anything else is the CSV capture
// layout. Frames without a sequence number are numbered in arrival order.
type StreamSource struct {
	name string
	r    io.Reader

	once  sync.Once
	lines chan string
	errc  chan error
	done  chan struct{}

	closeOnce sync.Once
	seq       uint64
}

// NewStreamSource reads from r. name only appears in errors and logs.
func NewStreamSource(name string, r io.Reader) *StreamSource {
	return &StreamSource{
		name:  name,
		r:     r,
		lines: make(chan string),
		errc:  make(chan error, 1),
		done:  make(chan struct{}),
	}
}

// scan runs the blocking reader in its own goroutine so Next can also
// wait on ctx.
func (s *StreamSource) scan() {
	sc := bufio.NewScanner(s.r)
	sc.Buffer(make([]byte, 4096), maxLine)
	go func() {
		defer close(s.lines)
		for sc.Scan() {
			select {
			case s.lines <- sc.Text():
			case <-s.done:
				return
			}
		}
		if err := sc.Err(); err != nil {
			s.errc <- err
		}
	}()
}

func (s *StreamSource) Next(ctx context.Context) (frame.Set, error) {
	s.once.Do(s.scan)
	for {
		select {
		case <-ctx.Done():
			return frame.Set{}, ctx.Err()
		case line, ok := <-s.lines:
			if !ok {
				select {
				case err := <-s.errc:
					return frame.Set{}, fmt.Errorf("%s: %w", s.name, err)
				default:
					return frame.Set{}, io.EOF
				}
			}
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			return s.decode(line)
		}
	}
}

func (s *StreamSource) decode(line string) (frame.Set, error) {
	var (
		f   frame.Set
		err error
	)
	if strings.HasPrefix(line, "{") {
		f, err = frame.Decode([]byte(line))
	} else {
		f, err = frame.DecodeCSV(line)
	}
	if err != nil {
		return frame.Set{}, fmt.Errorf("%w: %s: %v", ErrMalformed, s.name, err)
	}
	s.seq++
	if f.Seq == 0 {
		f.Seq = s.seq
	}
	return f, nil
}

// Close stops the reader goroutine and closes the underlying reader if it
// is closable. It is safe to call more than once.
func (s *StreamSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if c, ok := s.r.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}

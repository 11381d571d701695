// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"
)

// DialTCP connects to a capture server that streams one frame per line.
func DialTCP(ctx context.Context, addr string) (*StreamSource, error) {
	d := net.Dialer{Timeout: 5 * time.Second, KeepAlive: 15 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial capture server %s: %w", addr, err)
	}
	log.Printf("orientation: connected to capture server at %s", addr)
	return NewStreamSource("tcp "+addr, conn), nil
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/relabs-tech/mocap_retarget/internal/config"
	"github.com/relabs-tech/mocap_retarget/internal/driver"
	"github.com/relabs-tech/mocap_retarget/internal/orientation"
)

// RunMockConsole runs the whole retargeting loop locally against the mock
// source and prints the local rotations. No broker needed.
func RunMockConsole() error {
	cfg := config.Default()
	cfg.AnimationAutostart = true

	src := orientation.NewMockSource(cfg.ProducerTick())
	p, err := newPipeline(cfg, src, nil, driver.NewLogSink(os.Stderr))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- p.run(ctx) }()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-errc:
			return err
		case <-ticker.C:
			f, ok := p.snapshot.Latest()
			if !ok {
				continue
			}
			printFrame(os.Stdout, f)
			fmt.Println()
		}
	}
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/mocap_retarget/internal/config"
	"github.com/relabs-tech/mocap_retarget/internal/driver"
	"github.com/relabs-tech/mocap_retarget/internal/frame"
	"github.com/relabs-tech/mocap_retarget/internal/orientation"
	"github.com/relabs-tech/mocap_retarget/internal/pose"
	"github.com/relabs-tech/mocap_retarget/internal/retarget"
	"github.com/relabs-tech/mocap_retarget/internal/skeleton"
)

// statsInterval is how often the retargeter logs driver counters.
const statsInterval = 10 * time.Second

// Backoff between attempts to reopen a failed source.
const (
	retryMin = 500 * time.Millisecond
	retryMax = 10 * time.Second
)

// pipeline is source -> mailbox -> driver -> applier.
// Every committed frame also lands in snapshot.
type pipeline struct {
	box      *frame.Mailbox
	driver   *driver.Driver
	snapshot *pose.Snapshot
	tick     time.Duration

	// reopen replaces a source that failed. When nil the last frame is
	// held for the rest of the run.
	reopen func(ctx context.Context) (orientation.Source, error)
	retry  time.Duration

	mu  sync.Mutex
	src orientation.Source
}

func newPipeline(cfg *config.Config, src orientation.Source, out pose.Applier, sink driver.Sink) (*pipeline, error) {
	topo, err := skeleton.ByTopologyName(cfg.Topology)
	if err != nil {
		return nil, err
	}
	engine, err := retarget.New(topo, retarget.DefaultRotations())
	if err != nil {
		return nil, err
	}

	snap := pose.NewSnapshot()
	applier := pose.Multi{snap}
	if out != nil {
		applier = append(applier, out)
	}

	box := &frame.Mailbox{}
	drv, err := driver.New(engine, box, applier, driver.Options{
		Sink:      sink,
		DiagEvery: uint64(cfg.DiagEvery),
		DiagLimit: uint64(cfg.DiagLimit),
		Active:    cfg.AnimationAutostart,
	})
	if err != nil {
		return nil, err
	}
	return &pipeline{
		src:      src,
		box:      box,
		driver:   drv,
		snapshot: snap,
		tick:     cfg.Tick(),
		retry:    retryMin,
	}, nil
}

// run pumps frames and ticks the driver until ctx is done. Neither the
// source ending nor the source failing stops the driver: it keeps
// holding the last frame.
func (p *pipeline) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p.feed(ctx)
		return nil
	})
	g.Go(func() error {
		return p.driver.Run(ctx, p.tick)
	})
	g.Go(func() error {
		p.logStats(ctx, statsInterval)
		return nil
	})
	return g.Wait()
}

// feed pumps the current source into the mailbox. A source that fails is
// closed and, if reopen is set, replaced with backoff. feed owns the
// sources and closes whichever one is current when it returns.
func (p *pipeline) feed(ctx context.Context) {
	defer func() { closeSource(p.source()) }()

	for {
		err := orientation.Pump(ctx, p.source(), p.box)
		if err == nil || ctx.Err() != nil {
			return
		}
		log.Printf("retargeter: %v; holding last frame", err)
		if p.reopen == nil {
			return
		}
		closeSource(p.swapSource(nil))

		wait := p.retry
		for p.source() == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			src, err := p.reopen(ctx)
			if err != nil {
				log.Printf("retargeter: reopen source: %v (retry in %s)", err, wait)
				wait = min(2*wait, retryMax)
				continue
			}
			log.Println("retargeter: source reopened")
			p.swapSource(src)
		}
	}
}

func (p *pipeline) source() orientation.Source {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.src
}

func (p *pipeline) swapSource(src orientation.Source) orientation.Source {
	p.mu.Lock()
	defer p.mu.Unlock()
	old := p.src
	p.src = src
	return old
}

func closeSource(src orientation.Source) {
	if c, ok := src.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Printf("retargeter: close source: %v", err)
		}
	}
}

// sourceStats describes the counters the current source exposes, if any.
func (p *pipeline) sourceStats() string {
	switch src := p.source().(type) {
	case nil:
		return " source=down"
	case interface{ Dropped() uint64 }:
		return fmt.Sprintf(" source_dropped=%d", src.Dropped())
	case interface{ Passes() int }:
		return fmt.Sprintf(" replay_passes=%d", src.Passes())
	default:
		return ""
	}
}

func (p *pipeline) statsLine() string {
	st := p.driver.Stats()
	var bones int
	if f, ok := p.snapshot.Latest(); ok {
		bones = len(f.Bones)
	}
	return fmt.Sprintf("state=%s frames=%d stale=%d empty=%d applier_errors=%d bones=%d%s",
		p.driver.State(), st.Frames, st.StaleFrames, st.EmptyFrames, st.ApplierErrors, bones, p.sourceStats())
}

func (p *pipeline) logStats(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Printf("retargeter: %s", p.statsLine())
		}
	}
}

// openSource builds the sample source selected by SOURCE.
func openSource(ctx context.Context, cfg *config.Config, client mqtt.Client) (orientation.Source, error) {
	switch cfg.Source {
	case config.SourceMock:
		return orientation.NewMockSource(cfg.ProducerTick()), nil
	case config.SourceMQTT:
		return orientation.NewMQTTSource(client, cfg.TopicFrames)
	case config.SourceTCP:
		return orientation.DialTCP(ctx, cfg.TCPAddr)
	case config.SourceSerial:
		return orientation.OpenSerial(cfg.SerialPort, cfg.SerialBaudRate)
	case config.SourceReplay:
		return orientation.OpenReplay(cfg.ReplayFile, cfg.ProducerTick(), cfg.ReplayLoop)
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

// RunRetargeter runs the retargeting loop against the configured source,
// keeps the newest pose for local readers and publishes every frame to
// TOPIC_POSE. It returns on SIGINT or SIGTERM.
func RunRetargeter() error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("retargeter: config not initialized")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDRetargeter)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	src, err := openSource(ctx, cfg, client)
	if err != nil {
		return fmt.Errorf("retargeter: open %s source: %w", cfg.Source, err)
	}
	log.Printf("retargeter: source=%s topology=%s tick=%s", cfg.Source, cfg.Topology, cfg.Tick())

	p, err := newPipeline(cfg, src, pose.NewMQTTPublisher(client, cfg.TopicPose), driver.NewLogSink(os.Stderr))
	if err != nil {
		closeSource(src)
		return fmt.Errorf("retargeter: %w", err)
	}
	p.reopen = func(ctx context.Context) (orientation.Source, error) {
		return openSource(ctx, cfg, client)
	}

	if err := subscribeAnimation(client, cfg.TopicAnimation, p.driver); err != nil {
		closeSource(src)
		return fmt.Errorf("retargeter: %w", err)
	}
	if cfg.AnimationAutostart {
		log.Println("retargeter: animation autostart")
	}

	err = p.run(ctx)
	log.Println("retargeter: shutting down")
	return err
}

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
	"sync/atomic"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/mocap_retarget/internal/config"
	"github.com/relabs-tech/mocap_retarget/internal/frame"
	"github.com/relabs-tech/mocap_retarget/internal/orientation"
)

// framePublisher is an orientation.Sink that publishes each frame as one
// JSON message.
type framePublisher struct {
	client    mqtt.Client
	topic     string
	published atomic.Uint64
}

func (p *framePublisher) Put(s frame.Set) {
	payload, err := frame.Encode(s)
	if err != nil {
		log.Printf("producer: %v", err)
		return
	}
	token := p.client.Publish(p.topic, 0, false, payload)
	token.Wait()
	if token.Error() != nil {
		log.Printf("producer: publish error: %v", token.Error())
		return
	}
	if n := p.published.Add(1); n%500 == 1 {
		log.Printf("producer: published frame seq=%d (%d total, %d limbs present)", s.Seq, n, s.Present())
	}
}

// RunProducer publishes mock frames, or a recorded session when
// SOURCE=replay, to TOPIC_FRAMES every PRODUCER_INTERVAL.
func RunProducer() error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("producer: config not initialized")
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	var src orientation.Source
	switch cfg.Source {
	case config.SourceReplay:
		r, err := orientation.OpenReplay(cfg.ReplayFile, cfg.ProducerTick(), cfg.ReplayLoop)
		if err != nil {
			return err
		}
		src = r
	default:
		log.Println("producer: using mock frame source")
		src = orientation.NewMockSource(cfg.ProducerTick())
	}
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pub := &framePublisher{client: client, topic: cfg.TopicFrames}
	log.Printf("producer: publishing to %s every %s", cfg.TopicFrames, cfg.ProducerTick())
	err = orientation.Pump(ctx, src, pub)
	log.Printf("producer: stopped after %d frames", pub.published.Load())
	return err
}

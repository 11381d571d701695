// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pose

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTPublisher batches the bones of a frame and publishes the frame as
// one JSON message when it is committed.
type MQTTPublisher struct {
	client  mqtt.Client
	topic   string
	retain  bool
	timeout time.Duration
	pending builder
	now     func() time.Time
}

// NewMQTTPublisher publishes to topic on an already connected client.
// Frames are retained so late subscribers get the current pose at once.
func NewMQTTPublisher(client mqtt.Client, topic string) *MQTTPublisher {
	return &MQTTPublisher{
		client:  client,
		topic:   topic,
		retain:  true,
		timeout: 250 * time.Millisecond,
		now:     time.Now,
	}
}

func (p *MQTTPublisher) ApplyLocalTransform(bone string, t Transform) error {
	p.pending.apply(bone, t)
	return nil
}

// CommitFrame publishes the staged bones. It waits at most the publish
// timeout so a stalled broker cannot hold up the tick.
func (p *MQTTPublisher) CommitFrame(index uint64) error {
	f := p.pending.frame(index, p.now())
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("pose: marshal frame %d: %w", index, err)
	}
	token := p.client.Publish(p.topic, 0, p.retain, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("pose: publish frame %d to %s: timed out", index, p.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("pose: publish frame %d to %s: %w", index, p.topic, err)
	}
	return nil
}

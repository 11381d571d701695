// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/mocap_retarget/internal/frame"
)

// MQTTSource receives one JSON frame per message on a topic. When the
// consumer falls behind only the newest frame is kept.
type MQTTSource struct {
	client  mqtt.Client
	topic   string
	frames  chan frame.Set
	dropped atomic.Uint64
}

// NewMQTTSource subscribes to topic on an already connected client.
func NewMQTTSource(client mqtt.Client, topic string) (*MQTTSource, error) {
	s := &MQTTSource{
		client: client,
		topic:  topic,
		frames: make(chan frame.Set, 1),
	}
	if token := client.Subscribe(topic, 0, s.handle); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	log.Printf("orientation: subscribed to %s", topic)
	return s, nil
}

func (s *MQTTSource) handle(_ mqtt.Client, msg mqtt.Message) {
	f, err := frame.Decode(msg.Payload())
	if err != nil {
		s.dropped.Add(1)
		log.Printf("orientation: dropping message on %s: %v", msg.Topic(), err)
		return
	}
	// Latest wins: replace an unread frame instead of blocking the
	// paho router.
	for {
		select {
		case s.frames <- f:
			return
		default:
		}
		select {
		case <-s.frames:
		default:
		}
	}
}

func (s *MQTTSource) Next(ctx context.Context) (frame.Set, error) {
	select {
	case <-ctx.Done():
		return frame.Set{}, ctx.Err()
	case f := <-s.frames:
		return f, nil
	}
}

// Dropped returns how many messages failed to decode.
func (s *MQTTSource) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unsubscribes. The client stays connected.
func (s *MQTTSource) Close() error {
	token := s.client.Unsubscribe(s.topic)
	token.Wait()
	return token.Error()
}

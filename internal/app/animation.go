// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// parseAnimationSignal reads an animation-active payload:
// 1/0, true/false, on/off or start/stop, case-insensitive.
func parseAnimationSignal(payload []byte) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case "1", "true", "on", "start":
		return true, nil
	case "0", "false", "off", "stop":
		return false, nil
	default:
		return false, fmt.Errorf("invalid animation signal %q", payload)
	}
}

func animationPayload(active bool) string {
	if active {
		return "start"
	}
	return "stop"
}

type activator interface {
	SetActive(bool)
}

// subscribeAnimation routes the animation signal topic to target.
func subscribeAnimation(client mqtt.Client, topic string, target activator) error {
	token := client.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		on, err := parseAnimationSignal(msg.Payload())
		if err != nil {
			log.Printf("retargeter: %v", err)
			return
		}
		target.SetActive(on)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	log.Printf("retargeter: animation signal on %s", topic)
	return nil
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
	"log"

	serial "github.com/jacobsa/go-serial/serial"
)

// OpenSerial opens a suit receiver that writes one frame per line on a
// serial port (8N1).
func OpenSerial(portName string, baudRate int) (*StreamSource, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	log.Printf("orientation: serial port opened on %s at %d baud", opts.PortName, opts.BaudRate)
	return NewStreamSource("serial "+portName, port), nil
}

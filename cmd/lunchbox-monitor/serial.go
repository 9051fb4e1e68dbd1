package main

import (
	"bufio"
	"strings"

	"github.com/tarm/serial"
)

// startSerialListener accepts operator commands over a serial line, one
// command per line. The serial port is just another carrier for the
// same command set the dbus service exposes.
func startSerialListener(port string, baud int, commands chan<- Command) error {
	s, err := serial.OpenPort(&serial.Config{Name: port, Baud: baud})
	if err != nil {
		return err
	}

	go func() {
		scanner := bufio.NewScanner(s)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			cmd, err := parseCommand(line)
			if err != nil {
				log.Warnf("Ignoring serial input: %v", err)
				continue
			}
			log.Infof("Serial command received: %s", cmd)
			select {
			case commands <- cmd:
			default:
				log.Warn("Command queue full, dropping serial command.")
			}
		}
		if err := scanner.Err(); err != nil {
			log.Errorf("Serial listener stopped: %v", err)
		}
	}()
	return nil
}

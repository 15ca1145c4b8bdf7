package link

import (
	"fmt"

	"github.com/arloliu/go-swp/swp"
	"go.bug.st/serial"
)

// OpenSerial opens a serial port at baud 8N1 and returns a Stream over it.
func OpenSerial(portName string, baud int, n swp.Notifier, opts ...Option) (*Stream, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("link: open serial port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(cfg.serialReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("link: set read timeout on %s: %w", portName, err)
	}

	s, err := NewStream(port, n, opts...)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	cfg.logger.Info("link: serial port opened", "name", cfg.name, "port", portName, "baud", baud)

	return s, nil
}

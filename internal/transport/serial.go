package transport

import (
	"fmt"

	"go.bug.st/serial"
)

// DefaultBaudRate is the BLE112 UART default.
const DefaultBaudRate = 115200

// OpenSerial opens a serial device 8N1 at the given baud rate and wraps it in a UART
// transport.
func OpenSerial(path string, baud int, opts Options) (*UART, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}

	if opts.Logger != nil {
		opts.Logger.WithField("port", path).WithField("baud", baud).Debug("Serial port opened")
	}
	return NewUART(port, opts), nil
}

// ListPorts returns the serial devices present on the system.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	return ports, nil
}

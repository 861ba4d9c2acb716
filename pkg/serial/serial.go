package serial

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	tarm "github.com/tarm/serial"
	bugst "go.bug.st/serial"
)

const (
	// DriverTarm opens the port with github.com/tarm/serial.
	DriverTarm = "tarm"
	// DriverBugst opens the port with go.bug.st/serial.
	DriverBugst = "bugst"

	// AutoDetect as port name picks the first port reported by the system.
	AutoDetect = "auto"

	defaultBaudRate    = 115200
	defaultReadTimeout = 50 * time.Millisecond
)

var (
	// ErrNoPortName is returned when no serial port name is configured.
	ErrNoPortName = errors.New("serial port name is required")

	// ErrUnknownDriver is returned for a driver name other than DriverTarm or DriverBugst.
	ErrUnknownDriver = errors.New("unknown serial driver")

	// ErrNoPortFound is returned when auto-detection finds no serial port.
	ErrNoPortFound = errors.New("no serial port found")
)

// Transport is an established, bidirectional byte stream to the modem.
//
// Read must return promptly when nothing is buffered (a short read timeout),
// reporting zero bytes rather than blocking until data arrives. The engine
// relies on this to poll the stream against its own deadline.
type Transport interface {
	io.ReadWriteCloser
}

// Config describes how to open the modem's serial port.
type Config struct {
	Driver      string        // DriverTarm (default) or DriverBugst
	PortName    string        // e.g. /dev/ttyUSB2, or AutoDetect
	BaudRate    int           // defaults to 115200
	ReadTimeout time.Duration // per-read poll window, defaults to 50ms
}

// Lister returns the serial ports known to the system.
type Lister func() ([]string, error)

// Open opens the serial port described by cfg.
func Open(cfg Config) (Transport, error) {
	return open(cfg, bugst.GetPortsList)
}

func open(cfg Config, list Lister) (Transport, error) {
	if cfg.PortName == "" {
		return nil, ErrNoPortName
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = defaultBaudRate
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}

	if strings.EqualFold(cfg.PortName, AutoDetect) {
		name, err := detectPort(list)
		if err != nil {
			return nil, err
		}
		cfg.PortName = name
	}

	switch cfg.Driver {
	case "", DriverTarm:
		return openTarm(cfg)
	case DriverBugst:
		return openBugst(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// detectPort returns the last port reported by list. USB modems expose
// several interfaces and the AT port is usually enumerated last.
func detectPort(list Lister) (string, error) {
	ports, err := list()
	if err != nil {
		return "", fmt.Errorf("list serial ports: %w", err)
	}
	if len(ports) == 0 {
		return "", ErrNoPortFound
	}
	return ports[len(ports)-1], nil
}

func openTarm(cfg Config) (Transport, error) {
	port, err := tarm.OpenPort(&tarm.Config{
		Name:        cfg.PortName,
		Baud:        cfg.BaudRate,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.PortName, err)
	}
	return port, nil
}

func openBugst(cfg Config) (Transport, error) {
	port, err := bugst.Open(cfg.PortName, &bugst.Mode{
		BaudRate: cfg.BaudRate,
		Parity:   bugst.NoParity,
		DataBits: 8,
		StopBits: bugst.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.PortName, err)
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", cfg.PortName, err)
	}
	return port, nil
}

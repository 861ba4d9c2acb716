package at

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/benmeehan/gps-uplink-agent/pkg/serial"
	"github.com/rs/zerolog"
)

const (
	// LineEnd terminates every command written by Send.
	LineEnd = "\r\n"

	defaultPollInterval = 20 * time.Millisecond
	readBufferSize      = 512
	maxDrainReads       = 64
)

// ErrNoTransport is reported in CommandResult.Err when the engine has no transport.
var ErrNoTransport = errors.New("no transport configured")

// Commander is the command/response primitive the modem features are built on.
type Commander interface {
	Send(command, marker string, timeout time.Duration) CommandResult
	Stream(data []byte, marker string, timeout time.Duration) CommandResult
	CompleteLine(result CommandResult, marker string, timeout time.Duration) CommandResult
}

// CommandResult is the outcome of one command issuance.
type CommandResult struct {
	Matched  bool
	Elapsed  time.Duration
	Captured []byte
	// Err holds a transport failure. A timeout leaves Err nil and Matched false.
	Err error
}

// ElapsedMs returns the elapsed wait in whole milliseconds.
func (r CommandResult) ElapsedMs() int64 {
	return r.Elapsed.Milliseconds()
}

// Text returns the captured bytes as a string.
func (r CommandResult) Text() string {
	return string(r.Captured)
}

// Engine sends commands over a serial transport and polls the reply stream
// until a marker appears or the timeout expires. It owns the transport for
// the whole exchange; callers must not interleave exchanges.
type Engine struct {
	transport    serial.Transport
	pollInterval time.Duration
	verbose      bool
	logger       zerolog.Logger
}

// NewEngine creates an Engine on top of transport.
func NewEngine(transport serial.Transport, pollInterval time.Duration, verbose bool, logger zerolog.Logger) *Engine {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Engine{
		transport:    transport,
		pollInterval: pollInterval,
		verbose:      verbose,
		logger:       logger.With().Str("component", "at").Logger(),
	}
}

// Send writes command followed by LineEnd and waits for marker. An empty
// command writes nothing and only waits, for exchanges where the modem is
// already primed to answer.
func (e *Engine) Send(command, marker string, timeout time.Duration) CommandResult {
	if e.transport == nil {
		return CommandResult{Err: ErrNoTransport}
	}

	if command != "" {
		e.drain()
		e.diag().Str("command", command).Msg("AT command")
		if _, err := e.transport.Write([]byte(command + LineEnd)); err != nil {
			e.logger.Error().Err(err).Str("command", command).Msg("Failed to write AT command")
			return CommandResult{Err: fmt.Errorf("write command %q: %w", command, err)}
		}
	}

	return e.await(command, marker, timeout)
}

// Stream writes data as-is, without a terminator, and waits for marker.
func (e *Engine) Stream(data []byte, marker string, timeout time.Duration) CommandResult {
	if e.transport == nil {
		return CommandResult{Err: ErrNoTransport}
	}

	e.diag().Int("bytes", len(data)).Msg("AT stream")
	if _, err := e.transport.Write(data); err != nil {
		e.logger.Error().Err(err).Int("bytes", len(data)).Msg("Failed to stream data")
		return CommandResult{Err: fmt.Errorf("stream %d bytes: %w", len(data), err)}
	}

	return e.await("<stream>", marker, timeout)
}

// CompleteLine makes sure the line carrying marker in result has been
// received up to its terminator, waiting up to timeout for the rest of it.
// Unmatched results are returned unchanged.
func (e *Engine) CompleteLine(result CommandResult, marker string, timeout time.Duration) CommandResult {
	if !result.Matched {
		return result
	}
	idx := bytes.Index(result.Captured, []byte(marker))
	if idx < 0 || bytes.IndexByte(result.Captured[idx:], '\n') >= 0 {
		return result
	}

	rest := e.Send("", "\n", timeout)
	result.Captured = append(result.Captured, rest.Captured...)
	result.Elapsed += rest.Elapsed
	if rest.Err != nil {
		result.Err = rest.Err
	}
	return result
}

// await polls the transport until marker shows up in the accumulated bytes
// or timeout has elapsed.
func (e *Engine) await(command, marker string, timeout time.Duration) CommandResult {
	start := time.Now()
	want := []byte(marker)
	buf := make([]byte, readBufferSize)

	var captured []byte
	var readErr error
	matched := false

	for {
		n := e.readAvailable(buf, &captured, &readErr)

		if bytes.Contains(captured, want) {
			matched = true
			break
		}
		if time.Since(start) >= timeout {
			break
		}
		if n == 0 {
			time.Sleep(e.pollInterval)
		}
	}

	result := CommandResult{
		Matched:  matched,
		Elapsed:  time.Since(start),
		Captured: captured,
	}
	if !matched && readErr != nil {
		result.Err = readErr
	}

	e.diag().
		Str("command", command).
		Str("marker", marker).
		Bool("matched", matched).
		Int64("elapsed_ms", result.ElapsedMs()).
		Str("response", string(captured)).
		Msg("AT response")

	return result
}

// readAvailable drains whatever the transport has buffered into captured and
// returns the number of bytes read.
func (e *Engine) readAvailable(buf []byte, captured *[]byte, readErr *error) int {
	total := 0
	for i := 0; i < maxDrainReads; i++ {
		n, err := e.transport.Read(buf)
		if n > 0 {
			*captured = append(*captured, buf[:n]...)
			total += n
		}
		if err != nil && !errors.Is(err, io.EOF) {
			*readErr = fmt.Errorf("read reply: %w", err)
			e.logger.Debug().Err(err).Msg("Transport read failed")
		}
		if n < len(buf) || err != nil {
			break
		}
	}
	return total
}

// drain discards input left over from earlier exchanges, such as late
// replies or unsolicited notifications, so it cannot satisfy a new marker.
func (e *Engine) drain() {
	var stale []byte
	var readErr error
	buf := make([]byte, readBufferSize)
	for i := 0; i < maxDrainReads; i++ {
		if e.readAvailable(buf, &stale, &readErr) == 0 {
			break
		}
	}
	if len(stale) > 0 {
		e.logger.Debug().Str("discarded", string(stale)).Msg("Discarded stale modem output")
	}
}

func (e *Engine) diag() *zerolog.Event {
	if e.verbose {
		return e.logger.Info()
	}
	return e.logger.Debug()
}

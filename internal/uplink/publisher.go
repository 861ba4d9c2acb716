package uplink

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/benmeehan/gps-uplink-agent/internal/constants"
	"github.com/benmeehan/gps-uplink-agent/internal/models"
	"github.com/benmeehan/gps-uplink-agent/pkg/at"
	"github.com/rs/zerolog"
)

// Config describes the HTTP sink and the modem's HTTP client windows.
type Config struct {
	Endpoint string

	// Seconds the modem waits for URL and body bytes, and for the server.
	InputTime    int
	ResponseTime int

	// Our waits for the CONNECT prompt, the URL acknowledgment and the
	// final status notification. Zero selects the defaults.
	PromptTimeout   time.Duration
	AckTimeout      time.Duration
	ResponseTimeout time.Duration
}

// Publisher posts payloads through the modem's built-in HTTP client.
type Publisher struct {
	commander at.Commander
	config    Config
	logger    zerolog.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(commander at.Commander, config Config, logger zerolog.Logger) *Publisher {
	if config.PromptTimeout <= 0 {
		config.PromptTimeout = constants.TimeoutHTTPPrompt
	}
	if config.AckTimeout <= 0 {
		config.AckTimeout = constants.TimeoutHTTPURLAck
	}
	if config.ResponseTimeout <= 0 {
		config.ResponseTimeout = time.Duration(config.ResponseTime+5) * time.Second
	}
	return &Publisher{
		commander: commander,
		config:    config,
		logger:    logger.With().Str("component", "uplink").Logger(),
	}
}

// Publish runs the URL and POST phases for one payload. It returns true only
// when the server answered with a 2xx status. The first failed phase aborts
// the attempt; nothing is retried.
func (p *Publisher) Publish(payload models.UploadPayload) bool {
	body, err := payload.Marshal()
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to serialize payload")
		return false
	}

	url := p.config.Endpoint
	cmd := fmt.Sprintf(constants.CmdHTTPURL, len(url), p.config.InputTime)
	if !p.phase("declare url", p.commander.Send(cmd, constants.MarkerConnect, p.config.PromptTimeout)) {
		return false
	}
	if !p.phase("send url", p.commander.Stream([]byte(url), constants.MarkerOK, p.config.AckTimeout)) {
		return false
	}

	cmd = fmt.Sprintf(constants.CmdHTTPPost, len(body), p.config.InputTime, p.config.ResponseTime)
	if !p.phase("declare body", p.commander.Send(cmd, constants.MarkerConnect, p.config.PromptTimeout)) {
		return false
	}
	result := p.commander.Stream(body, constants.MarkerHTTPPost, p.config.ResponseTimeout)
	if !p.phase("send body", result) {
		return false
	}

	result = p.commander.CompleteLine(result, constants.MarkerHTTPPost, constants.TimeoutLineComplete)
	errCode, status, ok := ParsePostStatus(result.Text())
	if !ok || errCode != 0 || status < 200 || status > 299 {
		p.logger.Warn().
			Int("error_code", errCode).
			Int("http_status", status).
			Str("reply", result.Text()).
			Msg("Upload rejected")
		return false
	}

	p.logger.Info().
		Int("http_status", status).
		Int("bytes", len(body)).
		Int64("elapsed_ms", result.ElapsedMs()).
		Msg("Upload complete")
	return true
}

func (p *Publisher) phase(name string, result at.CommandResult) bool {
	if result.Matched {
		return true
	}
	p.logger.Warn().
		Str("phase", name).
		Err(result.Err).
		Int64("elapsed_ms", result.ElapsedMs()).
		Str("reply", result.Text()).
		Msg("Upload phase failed")
	return false
}

// ParsePostStatus reads "+QHTTPPOST: <err>,<status>[,<length>]". ok is false
// when the line is missing or its first two fields are not numbers.
func ParsePostStatus(reply string) (errCode, status int, ok bool) {
	idx := strings.Index(reply, constants.MarkerHTTPPost)
	if idx < 0 {
		return 0, 0, false
	}
	line := reply[idx+len(constants.MarkerHTTPPost):]
	if end := strings.IndexAny(line, "\r\n"); end >= 0 {
		line = line[:end]
	}

	fields := strings.SplitN(line, ",", 3)
	if len(fields) < 2 {
		return 0, 0, false
	}
	errCode, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return 0, 0, false
	}
	status, err = strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return errCode, 0, false
	}
	return errCode, status, true
}

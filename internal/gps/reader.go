package gps

import (
	"time"

	"github.com/benmeehan/gps-uplink-agent/internal/constants"
	"github.com/benmeehan/gps-uplink-agent/internal/models"
	"github.com/benmeehan/gps-uplink-agent/pkg/at"
	"github.com/rs/zerolog"
)

// Config controls how fixes are queried and parsed.
type Config struct {
	QueryCommand  string
	ReplyMarker   string
	Timeout       time.Duration
	StrictNumeric bool
	NMEAFallback  bool
}

// FixReader queries the modem for the current position.
type FixReader struct {
	commander at.Commander
	config    Config
	logger    zerolog.Logger
}

// NewFixReader creates a FixReader. Empty query and marker fall back to the
// modem defaults.
func NewFixReader(commander at.Commander, config Config, logger zerolog.Logger) *FixReader {
	if config.QueryCommand == "" {
		config.QueryCommand = constants.CmdGPSFix
	}
	if config.ReplyMarker == "" {
		config.ReplyMarker = constants.MarkerFix
	}
	if config.Timeout <= 0 {
		config.Timeout = constants.TimeoutQuery
	}
	return &FixReader{
		commander: commander,
		config:    config,
		logger:    logger.With().Str("component", "gps").Logger(),
	}
}

// ReadFix issues one location query and returns the parsed fix. It never
// fails; an unusable reply yields a fix with Valid unset.
func (r *FixReader) ReadFix() models.GPSFix {
	result := r.commander.Send(r.config.QueryCommand, r.config.ReplyMarker, r.config.Timeout)
	if !result.Matched {
		r.logger.Warn().
			Err(result.Err).
			Int64("elapsed_ms", result.ElapsedMs()).
			Msg("No fix reply from modem")
		return r.fallback()
	}

	result = r.commander.CompleteLine(result, r.config.ReplyMarker, constants.TimeoutLineComplete)
	fix := ParseFix(result.Text(), r.config.ReplyMarker, r.config.StrictNumeric)
	if !fix.Valid {
		r.logger.Warn().Str("reply", result.Text()).Msg("Malformed fix reply")
		return r.fallback()
	}

	r.logger.Debug().
		Float64("latitude", fix.Latitude).
		Float64("longitude", fix.Longitude).
		Int("satellites", fix.Satellites).
		Msg("Fix acquired")
	return fix
}

func (r *FixReader) fallback() models.GPSFix {
	if !r.config.NMEAFallback {
		return models.GPSFix{}
	}
	return r.readNMEA()
}

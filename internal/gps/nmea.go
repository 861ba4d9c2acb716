package gps

import (
	"strconv"

	"github.com/adrianmo/go-nmea"
	"github.com/benmeehan/gps-uplink-agent/internal/constants"
	"github.com/benmeehan/gps-uplink-agent/internal/models"
)

const knotsToKmh = 1.852

// readNMEA builds a fix from the GGA sentence the modem keeps for its last
// position, adding speed and course from RMC when that is available too.
func (r *FixReader) readNMEA() models.GPSFix {
	sentence, ok := r.querySentence(constants.CmdNMEAGGA)
	if !ok {
		return models.GPSFix{}
	}
	gga, ok := sentence.(nmea.GGA)
	if !ok {
		r.logger.Warn().Str("type", sentence.DataType()).Msg("Expected a GGA sentence")
		return models.GPSFix{}
	}

	var rmc *nmea.RMC
	if sentence, ok := r.querySentence(constants.CmdNMEARMC); ok {
		if m, ok := sentence.(nmea.RMC); ok {
			rmc = &m
		}
	}

	fix := FixFromNMEA(gga, rmc)
	if fix.Valid {
		r.logger.Info().
			Float64("latitude", fix.Latitude).
			Float64("longitude", fix.Longitude).
			Msg("Fix acquired from NMEA")
	}
	return fix
}

func (r *FixReader) querySentence(command string) (nmea.Sentence, bool) {
	result := r.commander.Send(command, constants.MarkerNMEA, r.config.Timeout)
	if !result.Matched {
		return nil, false
	}
	result = r.commander.CompleteLine(result, constants.MarkerNMEA, constants.TimeoutLineComplete)

	line, _ := ExtractLine(result.Text(), constants.MarkerNMEA)
	sentence, err := nmea.Parse(line)
	if err != nil {
		r.logger.Warn().Err(err).Str("sentence", line).Msg("Failed to parse NMEA sentence")
		return nil, false
	}
	return sentence, true
}

// FixFromNMEA converts a GGA sentence, and optionally the matching RMC
// sentence, into a fix. Speed is converted from knots to km/h.
func FixFromNMEA(gga nmea.GGA, rmc *nmea.RMC) models.GPSFix {
	if gga.FixQuality == "" || gga.FixQuality == nmea.Invalid {
		return models.GPSFix{}
	}

	mode, _ := strconv.Atoi(gga.FixQuality)
	fix := models.GPSFix{
		TimeOfFix:  gga.Time.String(),
		Latitude:   gga.Latitude,
		Longitude:  gga.Longitude,
		Altitude:   gga.Altitude,
		FixMode:    mode,
		Satellites: int(gga.NumSatellites),
		HDOP:       gga.HDOP,
		Valid:      true,
		Source:     models.FixSourceNMEA,
	}
	if rmc != nil && rmc.Validity == nmea.ValidRMC {
		fix.Speed = rmc.Speed * knotsToKmh
		fix.Heading = rmc.Course
		fix.Date = rmc.Date.String()
	}
	return fix
}

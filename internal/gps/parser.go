package gps

import (
	"math"
	"strconv"
	"strings"

	"github.com/benmeehan/gps-uplink-agent/internal/models"
)

// Positional slots of a fix reply.
const (
	fieldTime = iota
	fieldLongitude
	fieldLatitude
	fieldAltitude
	fieldSpeed
	fieldHeading
	fieldFixMode
	fieldDate
	fieldSatellites
	fieldHDOP

	maxFields = fieldHDOP + 1

	// minDelimiters is the number of commas needed for the satellite count
	// slot to be terminated. Anything shorter is rejected as a whole.
	minDelimiters = fieldSatellites + 1
)

// Tokenize splits s on sep into at most limit ordered fields. Text past the
// last kept field is dropped.
func Tokenize(s string, sep byte, limit int) []string {
	fields := make([]string, 0, limit)
	for len(fields) < limit {
		i := strings.IndexByte(s, sep)
		if i < 0 {
			fields = append(fields, s)
			return fields
		}
		fields = append(fields, s[:i])
		s = s[i+1:]
	}
	return fields
}

// ExtractLine returns the text following marker up to the end of its line,
// trimmed of surrounding whitespace. ok is false when marker is absent.
func ExtractLine(reply, marker string) (line string, ok bool) {
	idx := strings.Index(reply, marker)
	if idx < 0 {
		return "", false
	}
	rest := reply[idx+len(marker):]
	if end := strings.IndexAny(rest, "\r\n"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), true
}

// ParseFix parses a fix reply of the form
//
//	<marker> time,lon,lat,alt,speed,heading,mode,date,sats[,hdop]
//
// A reply without the marker or with fewer than 9 delimiters yields an
// invalid fix. Unparsable numbers read as zero unless strict is set, in
// which case they invalidate the fix.
func ParseFix(reply, marker string, strict bool) models.GPSFix {
	line, ok := ExtractLine(reply, marker)
	if !ok {
		return models.GPSFix{}
	}

	fields := Tokenize(line, ',', maxFields+1)
	if len(fields)-1 < minDelimiters {
		return models.GPSFix{}
	}

	p := fieldParser{fields: fields}
	fix := models.GPSFix{
		TimeOfFix:  strings.TrimSpace(fields[fieldTime]),
		Longitude:  p.float(fieldLongitude),
		Latitude:   p.float(fieldLatitude),
		Altitude:   p.float(fieldAltitude),
		Speed:      p.float(fieldSpeed),
		Heading:    p.float(fieldHeading),
		FixMode:    p.int(fieldFixMode),
		Date:       strings.TrimSpace(fields[fieldDate]),
		Satellites: p.int(fieldSatellites),
		HDOP:       p.optionalFloat(fieldHDOP),
		Source:     models.FixSourceModem,
	}
	fix.Valid = !strict || p.failed == 0
	return fix
}

// fieldParser converts positional fields and counts conversion failures.
type fieldParser struct {
	fields []string
	failed int
}

// float rejects NaN and infinities along with malformed text.
func (p *fieldParser) float(i int) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(p.fields[i]), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		p.failed++
		return 0
	}
	return v
}

func (p *fieldParser) int(i int) int {
	v, err := strconv.Atoi(strings.TrimSpace(p.fields[i]))
	if err != nil {
		p.failed++
		return 0
	}
	return v
}

// optionalFloat parses a trailing field that may be absent or empty.
func (p *fieldParser) optionalFloat(i int) float64 {
	if i >= len(p.fields) || strings.TrimSpace(p.fields[i]) == "" {
		return 0
	}
	return p.float(i)
}

package network

import (
	"strconv"
	"strings"

	"github.com/benmeehan/gps-uplink-agent/internal/constants"
	"github.com/benmeehan/gps-uplink-agent/pkg/at"
)

// SignalQuality returns the RSSI index reported by AT+CSQ (0-31), or
// constants.SignalUnknown when the modem gives no usable answer.
func SignalQuality(commander at.Commander) int {
	result := commander.Send(constants.CmdSignal, constants.MarkerOK, constants.TimeoutDefault)
	return ParseSignal(result.Text())
}

// ParseSignal extracts the RSSI from a "+CSQ: <rssi>,<ber>" reply.
func ParseSignal(reply string) int {
	idx := strings.Index(reply, constants.MarkerSignal)
	if idx < 0 {
		return constants.SignalUnknown
	}
	rest := reply[idx+len(constants.MarkerSignal):]
	if end := strings.IndexAny(rest, ",\r\n"); end >= 0 {
		rest = rest[:end]
	}
	rssi, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return constants.SignalUnknown
	}
	return rssi
}

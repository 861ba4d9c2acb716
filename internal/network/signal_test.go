package network_test

import (
	"testing"

	"github.com/benmeehan/gps-uplink-agent/internal/constants"
	"github.com/benmeehan/gps-uplink-agent/internal/mocks"
	"github.com/benmeehan/gps-uplink-agent/internal/network"
	"github.com/stretchr/testify/assert"
)

func TestParseSignal(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		expected int
	}{
		{"normal", "\r\n+CSQ: 18,99\r\n\r\nOK\r\n", 18},
		{"no ber", "+CSQ: 7\r\n", 7},
		{"unknown rssi", "+CSQ: 99,99\r\nOK\r\n", 99},
		{"missing marker", "\r\nERROR\r\n", constants.SignalUnknown},
		{"garbage", "+CSQ: xx,99\r\n", constants.SignalUnknown},
		{"empty", "", constants.SignalUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, network.ParseSignal(tt.reply))
		})
	}
}

func TestSignalQuality(t *testing.T) {
	transport := mocks.NewScriptedTransport(mocks.Exchange{Expect: "AT+CSQ", Reply: "\r\n+CSQ: 23,99\r\n\r\nOK\r\n"})

	assert.Equal(t, 23, network.SignalQuality(newEngine(transport)))
	assert.Equal(t, []string{"AT+CSQ\r\n"}, transport.Writes())
}

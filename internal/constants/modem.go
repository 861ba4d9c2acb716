package constants

import "time"

// Modem control commands.
const (
	CmdAttention = "AT"
	CmdEchoOff   = "ATE0"
	CmdGPSStart  = "AT+QGPS=1"
	CmdSignal    = "AT+CSQ"
	CmdOperator  = "AT+COPS?"
	CmdIMSI      = "AT+CIMI"

	// CmdContextConfig takes context id, APN, user, password.
	CmdContextConfig     = `AT+QICSGP=%d,1,"%s","%s","%s",1`
	CmdContextActivate   = "AT+QIACT=%d"
	CmdContextDeactivate = "AT+QIDEACT=%d"

	CmdHTTPContextID   = `AT+QHTTPCFG="contextid",%d`
	CmdHTTPContentType = `AT+QHTTPCFG="contenttype",4`

	// CmdHTTPURL takes the URL length and the URL input window in seconds.
	CmdHTTPURL = "AT+QHTTPURL=%d,%d"
	// CmdHTTPPost takes the body length, the body input window and the
	// response window, both in seconds.
	CmdHTTPPost = "AT+QHTTPPOST=%d,%d,%d"

	// Default location query and the marker prefixing its reply.
	CmdGPSFix = "AT+GPSFIX"
	MarkerFix = "+FIX:"

	CmdNMEAGGA = `AT+QGPSGNMEA="GGA"`
	CmdNMEARMC = `AT+QGPSGNMEA="RMC"`
)

// Reply markers.
const (
	MarkerOK       = "OK"
	MarkerConnect  = "CONNECT"
	MarkerSignal   = "+CSQ:"
	MarkerHTTPPost = "+QHTTPPOST:"
	MarkerNMEA     = "+QGPSGNMEA:"
)

// Fixed per-exchange timeouts.
const (
	TimeoutDefault      = 2 * time.Second
	TimeoutQuery        = 5 * time.Second
	TimeoutDeactivate   = 40 * time.Second
	TimeoutActivate     = 150 * time.Second
	TimeoutHTTPPrompt   = 5 * time.Second
	TimeoutHTTPURLAck   = 5 * time.Second
	TimeoutLineComplete = time.Second

	// SignalUnknown is the RSSI reported by AT+CSQ when it cannot be measured.
	SignalUnknown = 99
)

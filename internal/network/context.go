package network

import (
	"fmt"
	"time"

	"github.com/benmeehan/gps-uplink-agent/internal/constants"
	"github.com/benmeehan/gps-uplink-agent/pkg/at"
)

// Timeouts bounds the packet-context exchanges. Zero fields take the
// modem defaults.
type Timeouts struct {
	Command    time.Duration
	Activate   time.Duration
	Deactivate time.Duration
}

// PacketContext drives the modem's packet-data context used by the HTTP client.
type PacketContext struct {
	commander at.Commander
	id        int
	timeouts  Timeouts
}

// NewPacketContext creates a PacketContext for context id.
func NewPacketContext(commander at.Commander, id int, timeouts Timeouts) *PacketContext {
	if timeouts.Command <= 0 {
		timeouts.Command = constants.TimeoutDefault
	}
	if timeouts.Activate <= 0 {
		// registration on a cold network can take minutes
		timeouts.Activate = constants.TimeoutActivate
	}
	if timeouts.Deactivate <= 0 {
		timeouts.Deactivate = constants.TimeoutDeactivate
	}
	return &PacketContext{commander: commander, id: id, timeouts: timeouts}
}

// Configure applies apn and its credentials to the context.
func (c *PacketContext) Configure(apn, user, password string) at.CommandResult {
	cmd := fmt.Sprintf(constants.CmdContextConfig, c.id, apn, user, password)
	return c.commander.Send(cmd, constants.MarkerOK, c.timeouts.Command)
}

// Activate brings the context up.
func (c *PacketContext) Activate() at.CommandResult {
	cmd := fmt.Sprintf(constants.CmdContextActivate, c.id)
	return c.commander.Send(cmd, constants.MarkerOK, c.timeouts.Activate)
}

// Deactivate tears down a context left over from a previous session.
func (c *PacketContext) Deactivate() at.CommandResult {
	cmd := fmt.Sprintf(constants.CmdContextDeactivate, c.id)
	return c.commander.Send(cmd, constants.MarkerOK, c.timeouts.Deactivate)
}

// BindHTTP points the HTTP client at this context and selects a JSON body.
func (c *PacketContext) BindHTTP() []at.CommandResult {
	return []at.CommandResult{
		c.commander.Send(fmt.Sprintf(constants.CmdHTTPContextID, c.id), constants.MarkerOK, c.timeouts.Command),
		c.commander.Send(constants.CmdHTTPContentType, constants.MarkerOK, c.timeouts.Command),
	}
}

package network

import (
	"strings"

	"github.com/benmeehan/gps-uplink-agent/internal/constants"
	"github.com/benmeehan/gps-uplink-agent/internal/models"
	"github.com/benmeehan/gps-uplink-agent/pkg/at"
	"github.com/elliotchance/orderedmap/v2"
	"github.com/rs/zerolog"
)

const prefixLength = 5

// Resolver picks the access point name for the network the modem is on.
// It holds no state between calls: identical modem replies always produce
// the same access point.
type Resolver struct {
	commander at.Commander
	carriers  []models.CarrierRule
	prefixes  *orderedmap.OrderedMap[string, string]
	logger    zerolog.Logger
}

// NewResolver creates a Resolver. Empty tables select DefaultCarriers and
// DefaultPrefixes. Carrier patterns are matched case-insensitively; for a
// prefix listed twice the first entry is kept.
func NewResolver(commander at.Commander, carriers []models.CarrierRule, prefixes []models.PrefixRule, logger zerolog.Logger) *Resolver {
	if len(carriers) == 0 {
		carriers = DefaultCarriers
	}
	if len(prefixes) == 0 {
		prefixes = DefaultPrefixes
	}

	r := &Resolver{
		commander: commander,
		carriers:  make([]models.CarrierRule, 0, len(carriers)),
		prefixes:  orderedmap.NewOrderedMap[string, string](),
		logger:    logger.With().Str("component", "apn").Logger(),
	}
	for _, rule := range carriers {
		r.carriers = append(r.carriers, models.CarrierRule{
			Pattern: strings.ToUpper(rule.Pattern),
			APN:     rule.APN,
		})
	}
	for _, rule := range prefixes {
		if _, exists := r.prefixes.Get(rule.Prefix); !exists {
			r.prefixes.Set(rule.Prefix, rule.APN)
		}
	}
	return r
}

// ResolveAccessPoint returns the access point for the registered operator,
// then for the SIM's home network, and fallback when neither is known.
func (r *Resolver) ResolveAccessPoint(fallback string) string {
	operator := r.commander.Send(constants.CmdOperator, constants.MarkerOK, constants.TimeoutQuery)
	identity := models.NetworkIdentity{OperatorName: operatorName(operator.Text())}
	if apn, ok := r.MatchOperator(operator.Text()); ok {
		r.logger.Info().
			Str("operator", identity.OperatorName).
			Str("apn", apn).
			Msg("Access point selected from operator name")
		return apn
	}

	imsi := r.commander.Send(constants.CmdIMSI, constants.MarkerOK, constants.TimeoutQuery)
	identity.SubscriberPrefix = subscriberPrefix(imsi.Text())
	if apn, ok := r.MatchSubscriber(identity.SubscriberPrefix); ok {
		r.logger.Info().
			Str("prefix", identity.SubscriberPrefix).
			Str("apn", apn).
			Msg("Access point selected from subscriber identity")
		return apn
	}

	r.logger.Warn().
		Str("operator", identity.OperatorName).
		Str("prefix", identity.SubscriberPrefix).
		Str("apn", fallback).
		Msg("Network not recognised, using fallback access point")
	return fallback
}

// MatchOperator returns the access point of the first carrier whose pattern
// appears in reply, ignoring case.
func (r *Resolver) MatchOperator(reply string) (string, bool) {
	upper := strings.ToUpper(reply)
	for _, rule := range r.carriers {
		if strings.Contains(upper, rule.Pattern) {
			return rule.APN, true
		}
	}
	return "", false
}

// MatchSubscriber returns the access point for a 5 digit home network prefix.
func (r *Resolver) MatchSubscriber(prefix string) (string, bool) {
	if len(prefix) != prefixLength {
		return "", false
	}
	return r.prefixes.Get(prefix)
}

// operatorName extracts the quoted name from a +COPS reply, if any.
func operatorName(reply string) string {
	start := strings.IndexByte(reply, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(reply[start+1:], '"')
	if end < 0 {
		return ""
	}
	return reply[start+1 : start+1+end]
}

// subscriberPrefix returns the first 5 digits of the first run of at least
// 5 consecutive digits in reply. AT+CIMI puts the IMSI there, with or without
// a "+CIMI:" prefix.
func subscriberPrefix(reply string) string {
	run := 0
	for i := 0; i < len(reply); i++ {
		if reply[i] < '0' || reply[i] > '9' {
			run = 0
			continue
		}
		run++
		if run == prefixLength {
			return reply[i-prefixLength+1 : i+1]
		}
	}
	return ""
}

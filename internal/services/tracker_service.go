package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benmeehan/gps-uplink-agent/internal/constants"
	"github.com/benmeehan/gps-uplink-agent/internal/models"
	"github.com/benmeehan/gps-uplink-agent/internal/network"
	"github.com/benmeehan/gps-uplink-agent/internal/state_managers"
	"github.com/benmeehan/gps-uplink-agent/internal/uplink"
	"github.com/benmeehan/gps-uplink-agent/pkg/at"
	"github.com/rs/zerolog"
)

// ErrFatalSetup marks a setup failure the tracker cannot recover from.
var ErrFatalSetup = errors.New("modem setup failed")

// State is the tracker's position in its boot sequence.
type State int

const (
	StateBooting State = iota
	StateModuleReady
	StateNetworkConfigured
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateBooting:
		return "booting"
	case StateModuleReady:
		return "module_ready"
	case StateNetworkConfigured:
		return "network_configured"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FixSource yields one position reading per call.
type FixSource interface {
	ReadFix() models.GPSFix
}

// AccessPointResolver picks the access point for the current network.
type AccessPointResolver interface {
	ResolveAccessPoint(fallback string) string
}

// FixPublisher delivers a payload to the data sink.
type FixPublisher interface {
	Publish(payload models.UploadPayload) bool
}

// FixMirror republishes an uploaded payload elsewhere.
type FixMirror interface {
	Mirror(payload models.UploadPayload) error
}

// TrackerConfig holds the tracker's settings.
type TrackerConfig struct {
	DeviceID      string
	Interval      time.Duration
	BootAttempts  int
	AutoDetectAPN bool
	FallbackAPN   string
	APNUser       string
	APNPassword   string

	// CommandTimeout bounds the short setup commands; zero selects the default.
	CommandTimeout time.Duration
}

// TrackerService brings the modem up and then reads and uploads a fix every
// interval. A single goroutine owns the modem once Start has returned.
type TrackerService struct {
	commander at.Commander
	fixes     FixSource
	resolver  AccessPointResolver
	packet    *network.PacketContext
	publisher FixPublisher
	mirror    FixMirror
	stats     *state_managers.CycleStats
	config    TrackerConfig
	logger    zerolog.Logger

	mu    sync.RWMutex
	state State
	apn   string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTrackerService creates a TrackerService. mirror may be nil.
func NewTrackerService(
	commander at.Commander,
	fixes FixSource,
	resolver AccessPointResolver,
	packet *network.PacketContext,
	publisher FixPublisher,
	mirror FixMirror,
	stats *state_managers.CycleStats,
	config TrackerConfig,
	logger zerolog.Logger,
) *TrackerService {
	if config.BootAttempts < 1 {
		config.BootAttempts = 1
	}
	if config.CommandTimeout <= 0 {
		config.CommandTimeout = constants.TimeoutDefault
	}
	if stats == nil {
		stats = state_managers.NewCycleStats()
	}
	t := &TrackerService{
		commander: commander,
		fixes:     fixes,
		resolver:  resolver,
		packet:    packet,
		publisher: publisher,
		mirror:    mirror,
		stats:     stats,
		config:    config,
		logger:    logger.With().Str("component", "tracker").Logger(),
	}
	t.setState(StateBooting)
	return t
}

// State returns the current boot state.
func (t *TrackerService) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// APN returns the access point applied during setup.
func (t *TrackerService) APN() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.apn
}

func (t *TrackerService) setState(state State) {
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()
	t.stats.SetLabel(state_managers.LabelState, state.String())
}

func (t *TrackerService) setAPN(apn string) {
	t.mu.Lock()
	t.apn = apn
	t.mu.Unlock()
	t.stats.SetLabel(state_managers.LabelAPN, apn)
}

// Start runs setup and, when it succeeds, launches the cycle loop. A setup
// failure is returned wrapped in ErrFatalSetup and nothing further runs.
func (t *TrackerService) Start() error {
	if t.ctx != nil {
		t.logger.Warn().Msg("TrackerService is already running")
		return errors.New("tracker service is already running")
	}

	if err := t.Setup(); err != nil {
		t.logger.Error().Err(err).Msg("Setup failed, halting")
		return err
	}

	t.ctx, t.cancel = context.WithCancel(context.Background())
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.run()
	}()

	t.logger.Info().Dur("interval", t.config.Interval).Msg("TrackerService started successfully")
	return nil
}

// Stop ends the cycle loop after the cycle in progress, if any.
func (t *TrackerService) Stop() error {
	if t.ctx == nil {
		t.logger.Warn().Msg("TrackerService is not running")
		return errors.New("tracker service is not running")
	}

	t.cancel()
	t.wg.Wait()

	t.ctx = nil
	t.cancel = nil

	t.logger.Info().Msg("TrackerService stopped successfully")
	return nil
}

// Setup walks the modem from Booting to NetworkConfigured.
func (t *TrackerService) Setup() error {
	t.setState(StateBooting)
	if err := t.boot(); err != nil {
		return err
	}
	t.setState(StateModuleReady)

	if err := t.configureNetwork(); err != nil {
		return err
	}
	t.setState(StateNetworkConfigured)
	return nil
}

func (t *TrackerService) boot() error {
	t.commander.Send(constants.CmdEchoOff, constants.MarkerOK, t.config.CommandTimeout)

	for attempt := 1; attempt <= t.config.BootAttempts; attempt++ {
		result := t.commander.Send(constants.CmdAttention, constants.MarkerOK, t.config.CommandTimeout)
		if result.Matched {
			t.logger.Info().Int("attempt", attempt).Msg("Modem ready")
			return nil
		}
		t.logger.Warn().Int("attempt", attempt).Err(result.Err).Msg("Modem did not acknowledge")
	}
	return fmt.Errorf("%w: no response to %s after %d attempts", ErrFatalSetup, constants.CmdAttention, t.config.BootAttempts)
}

func (t *TrackerService) configureNetwork() error {
	if result := t.commander.Send(constants.CmdGPSStart, constants.MarkerOK, t.config.CommandTimeout); !result.Matched {
		// already running after a warm restart, among other causes
		t.logger.Warn().Str("reply", result.Text()).Msg("GPS start not acknowledged, continuing")
	}

	if result := t.packet.Deactivate(); !result.Matched {
		t.logger.Debug().Str("reply", result.Text()).Msg("No previous packet context to deactivate")
	}

	apn := t.config.FallbackAPN
	if t.config.AutoDetectAPN {
		apn = t.resolver.ResolveAccessPoint(t.config.FallbackAPN)
	}
	t.setAPN(apn)

	if result := t.packet.Configure(apn, t.config.APNUser, t.config.APNPassword); !result.Matched {
		return fmt.Errorf("%w: access point %q rejected: %q", ErrFatalSetup, apn, result.Text())
	}
	if result := t.packet.Activate(); !result.Matched {
		return fmt.Errorf("%w: packet context activation rejected after %dms: %q", ErrFatalSetup, result.ElapsedMs(), result.Text())
	}

	for _, result := range t.packet.BindHTTP() {
		if !result.Matched {
			t.logger.Warn().Str("reply", result.Text()).Msg("HTTP client configuration not acknowledged")
		}
	}

	t.logger.Info().Str("apn", apn).Msg("Network configured")
	return nil
}

// run performs a cycle right away and then one every interval, measured
// from the start of the previous cycle.
func (t *TrackerService) run() {
	t.setState(StateRunning)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			started := time.Now()
			t.RunCycle()
			timer.Reset(time.Until(started.Add(t.config.Interval)))
		case <-t.ctx.Done():
			t.logger.Info().Msg("TrackerService stopping gracefully")
			return
		}
	}
}

// RunCycle reads a fix and, if it is valid, uploads it together with the
// current signal quality. It reports whether the upload succeeded.
func (t *TrackerService) RunCycle() bool {
	t.stats.Incr(state_managers.StatCycles)

	fix := t.fixes.ReadFix()
	if !fix.Valid {
		t.stats.Incr(state_managers.StatFixFailures)
		t.logger.Warn().Msg("No valid fix, skipping cycle")
		return false
	}

	signal := network.SignalQuality(t.commander)
	t.stats.Set(state_managers.StatLastSignal, int64(signal))

	payload := uplink.BuildPayload(t.config.DeviceID, fix, signal)
	if !t.publisher.Publish(payload) {
		t.stats.Incr(state_managers.StatPublishFailures)
		t.logger.Warn().Msg("Upload failed, will retry next cycle")
		return false
	}
	t.stats.Incr(state_managers.StatPublished)

	if t.mirror != nil {
		// mirror failures are logged by the mirror and never fail the cycle
		_ = t.mirror.Mirror(payload)
	}
	return true
}

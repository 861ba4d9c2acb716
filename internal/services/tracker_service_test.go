package services_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benmeehan/gps-uplink-agent/internal/mocks"
	"github.com/benmeehan/gps-uplink-agent/internal/models"
	"github.com/benmeehan/gps-uplink-agent/internal/network"
	"github.com/benmeehan/gps-uplink-agent/internal/services"
	"github.com/benmeehan/gps-uplink-agent/internal/state_managers"
	"github.com/benmeehan/gps-uplink-agent/pkg/at"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFixes struct {
	mu    sync.Mutex
	fixes []models.GPSFix
	reads int
}

func (s *stubFixes) ReadFix() models.GPSFix {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if len(s.fixes) == 0 {
		return models.GPSFix{}
	}
	fix := s.fixes[0]
	if len(s.fixes) > 1 {
		s.fixes = s.fixes[1:]
	}
	return fix
}

func (s *stubFixes) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

type stubPublisher struct {
	mu       sync.Mutex
	ok       bool
	payloads []models.UploadPayload
}

func (s *stubPublisher) Publish(payload models.UploadPayload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
	return s.ok
}

type stubResolver struct {
	apn   string
	calls int
}

func (s *stubResolver) ResolveAccessPoint(fallback string) string {
	s.calls++
	if s.apn == "" {
		return fallback
	}
	return s.apn
}

type stubMirror struct {
	payloads []models.UploadPayload
}

func (s *stubMirror) Mirror(payload models.UploadPayload) error {
	s.payloads = append(s.payloads, payload)
	return errors.New("broker unreachable")
}

var validFix = models.GPSFix{Latitude: 9.98, Longitude: 76.45, Satellites: 7, HDOP: 1.1, Valid: true}

func acked(cmd string) mocks.Exchange {
	return mocks.Exchange{Expect: cmd, Reply: "\r\nOK\r\n"}
}

func setupScript() []mocks.Exchange {
	return []mocks.Exchange{
		acked("ATE0"),
		acked("AT\r\n"),
		acked("AT+QGPS=1"),
		acked("AT+QIDEACT=1"),
		acked(`AT+QICSGP=1,1,"jionet","gps","secret",1`),
		acked("AT+QIACT=1"),
		acked(`AT+QHTTPCFG="contextid",1`),
		acked(`AT+QHTTPCFG="contenttype",4`),
	}
}

type fixture struct {
	transport *mocks.ScriptedTransport
	fixes     *stubFixes
	publisher *stubPublisher
	resolver  *stubResolver
	mirror    *stubMirror
	stats     *state_managers.CycleStats
	tracker   *services.TrackerService
}

func newFixture(exchanges []mocks.Exchange, config services.TrackerConfig) *fixture {
	f := &fixture{
		transport: mocks.NewScriptedTransport(exchanges...),
		fixes:     &stubFixes{},
		publisher: &stubPublisher{ok: true},
		resolver:  &stubResolver{apn: "jionet"},
		mirror:    &stubMirror{},
		stats:     state_managers.NewCycleStats(),
	}
	engine := at.NewEngine(f.transport, time.Millisecond, false, zerolog.Nop())
	packet := network.NewPacketContext(engine, 1, network.Timeouts{
		Command:    50 * time.Millisecond,
		Activate:   50 * time.Millisecond,
		Deactivate: 50 * time.Millisecond,
	})
	if config.CommandTimeout == 0 {
		config.CommandTimeout = 50 * time.Millisecond
	}
	f.tracker = services.NewTrackerService(engine, f.fixes, f.resolver, packet, f.publisher, f.mirror, f.stats,
		config, zerolog.Nop())
	return f
}

func defaultConfig() services.TrackerConfig {
	return services.TrackerConfig{
		DeviceID:      "ESP32_001",
		Interval:      time.Hour,
		BootAttempts:  2,
		AutoDetectAPN: true,
		FallbackAPN:   "internet",
		APNUser:       "gps",
		APNPassword:   "secret",
	}
}

func TestTrackerService_Setup_Success(t *testing.T) {
	f := newFixture(setupScript(), defaultConfig())

	err := f.tracker.Setup()

	require.NoError(t, err)
	assert.Equal(t, services.StateNetworkConfigured, f.tracker.State())
	assert.Equal(t, "jionet", f.tracker.APN())
	assert.Equal(t, "jionet", f.stats.Label(state_managers.LabelAPN))
	assert.Equal(t, 0, f.transport.Remaining())
}

func TestTrackerService_Setup_ModemSilentIsFatal(t *testing.T) {
	f := newFixture(nil, defaultConfig())

	err := f.tracker.Setup()

	assert.ErrorIs(t, err, services.ErrFatalSetup)
	assert.Equal(t, services.StateBooting, f.tracker.State())
	// echo off plus two liveness attempts, nothing after
	assert.Equal(t, []string{"ATE0\r\n", "AT\r\n", "AT\r\n"}, f.transport.Writes())
}

func TestTrackerService_Setup_SecondAttemptSucceeds(t *testing.T) {
	script := setupScript()
	script = append([]mocks.Exchange{script[0], {Expect: "AT\r\n", Reply: "\r\nERROR\r\n"}}, script[1:]...)
	f := newFixture(script, defaultConfig())

	require.NoError(t, f.tracker.Setup())
	assert.Equal(t, services.StateNetworkConfigured, f.tracker.State())
}

func TestTrackerService_Setup_NonFatalSteps(t *testing.T) {
	script := setupScript()
	script[2].Reply = "\r\n+CME ERROR: 504\r\n" // GPS already on
	script[3].Reply = "\r\nERROR\r\n"           // no context to tear down
	script[7].Reply = "\r\nERROR\r\n"
	f := newFixture(script, defaultConfig())

	require.NoError(t, f.tracker.Setup())
	assert.Equal(t, services.StateNetworkConfigured, f.tracker.State())
}

func TestTrackerService_Setup_APNRejectedIsFatal(t *testing.T) {
	script := setupScript()
	script[4].Reply = "\r\nERROR\r\n"
	f := newFixture(script, defaultConfig())

	err := f.tracker.Setup()

	assert.ErrorIs(t, err, services.ErrFatalSetup)
	assert.Equal(t, services.StateModuleReady, f.tracker.State())
	assert.Equal(t, 3, f.transport.Remaining())
}

func TestTrackerService_Setup_ActivationRejectedIsFatal(t *testing.T) {
	script := setupScript()
	script[5].Reply = "\r\nERROR\r\n"
	f := newFixture(script, defaultConfig())

	err := f.tracker.Setup()

	assert.ErrorIs(t, err, services.ErrFatalSetup)
	assert.Equal(t, services.StateModuleReady, f.tracker.State())
}

func TestTrackerService_Setup_FallbackWithoutDetection(t *testing.T) {
	config := defaultConfig()
	config.AutoDetectAPN = false
	script := setupScript()
	script[4] = acked(`AT+QICSGP=1,1,"internet","gps","secret",1`)
	f := newFixture(script, config)

	require.NoError(t, f.tracker.Setup())
	assert.Equal(t, "internet", f.tracker.APN())
	assert.Zero(t, f.resolver.calls)
}

func TestTrackerService_RunCycle_PublishesValidFix(t *testing.T) {
	f := newFixture([]mocks.Exchange{{Expect: "AT+CSQ", Reply: "\r\n+CSQ: 21,99\r\n\r\nOK\r\n"}}, defaultConfig())
	f.fixes.fixes = []models.GPSFix{validFix}

	assert.True(t, f.tracker.RunCycle())

	require.Len(t, f.publisher.payloads, 1)
	payload := f.publisher.payloads[0]
	assert.Equal(t, "ESP32_001", payload.DeviceID)
	assert.Equal(t, 21, payload.Signal)
	assert.Equal(t, 7, payload.Satellites)
	assert.Len(t, f.mirror.payloads, 1)
	assert.Equal(t, int64(1), f.stats.Get(state_managers.StatPublished))
	assert.Equal(t, int64(21), f.stats.Get(state_managers.StatLastSignal))
}

func TestTrackerService_RunCycle_InvalidFixSkipsUpload(t *testing.T) {
	f := newFixture(nil, defaultConfig())

	assert.False(t, f.tracker.RunCycle())

	assert.Empty(t, f.publisher.payloads)
	assert.Empty(t, f.transport.Writes())
	assert.Equal(t, int64(1), f.stats.Get(state_managers.StatFixFailures))
}

func TestTrackerService_RunCycle_PublishFailureCounted(t *testing.T) {
	f := newFixture([]mocks.Exchange{{Expect: "AT+CSQ", Reply: "\r\n+CSQ: 5,99\r\n\r\nOK\r\n"}}, defaultConfig())
	f.fixes.fixes = []models.GPSFix{validFix}
	f.publisher.ok = false

	assert.False(t, f.tracker.RunCycle())

	assert.Empty(t, f.mirror.payloads)
	assert.Equal(t, int64(1), f.stats.Get(state_managers.StatPublishFailures))
	assert.Equal(t, int64(1), f.stats.Get(state_managers.StatCycles))
}

func TestTrackerService_StartStop(t *testing.T) {
	f := newFixture(setupScript(), defaultConfig())

	require.NoError(t, f.tracker.Start())
	assert.Error(t, f.tracker.Start())

	// the first cycle runs straight after setup
	assert.Eventually(t, func() bool { return f.fixes.Reads() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, services.StateRunning, f.tracker.State())

	require.NoError(t, f.tracker.Stop())
	assert.EqualError(t, f.tracker.Stop(), "tracker service is not running")
}

func TestTrackerService_Start_FatalSetup(t *testing.T) {
	f := newFixture(nil, defaultConfig())

	err := f.tracker.Start()

	assert.ErrorIs(t, err, services.ErrFatalSetup)
	assert.Error(t, f.tracker.Stop())
	assert.Zero(t, f.fixes.Reads())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "booting", services.StateBooting.String())
	assert.Equal(t, "running", services.StateRunning.String())
	assert.Equal(t, "state(9)", services.State(9).String())
}

// internal/board/machine.go
package board

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tamzrod/sam-firmware/internal/config"
	"github.com/tamzrod/sam-firmware/internal/heartbeat"
	"github.com/tamzrod/sam-firmware/internal/logging"
	"github.com/tamzrod/sam-firmware/internal/status"
)

// maxCommands bounds the commands executed per PollAdcs iteration.
const maxCommands = 64

type Options struct {
	Clock        clock.Clock
	Logger       *zap.Logger
	Sink         logging.Sink   // defaults to a ZapSink over Logger
	OpenHardware HardwareOpener // defaults to OpenHardware
}

// Machine sequences Init -> Connect -> InitAdcs -> PollAdcs -> Abort -> Connect.
// Run and Step are called from one goroutine only.
type Machine struct {
	cfg    *config.Config
	open   HardwareOpener
	clock  clock.Clock
	logger *zap.Logger
	sink   logging.Sink
	status *status.Tracker

	sendFaults *rate.Limiter
}

// New builds a machine for a validated and normalized config.
func New(cfg *config.Config, opts Options) *Machine {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Sink == nil {
		opts.Sink = logging.NewZapSink(opts.Logger.Named("events"))
	}
	if opts.OpenHardware == nil {
		opts.OpenHardware = OpenHardware
	}
	return &Machine{
		cfg:        cfg,
		open:       opts.OpenHardware,
		clock:      opts.Clock,
		logger:     opts.Logger,
		sink:       opts.Sink,
		status:     status.NewTracker(),
		sendFaults: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Status returns the current board health.
func (m *Machine) Status() status.Snapshot {
	return m.status.Snapshot(m.clock.Now())
}

// Run drives the machine from Init until ctx is done. Only a hardware
// mapping fault returns early. On return every output is safe and every
// resource is released.
func (m *Machine) Run(ctx context.Context) error {
	var st State = Init{}
	m.enter(st)

	for {
		if err := ctx.Err(); err != nil {
			return multierr.Append(err, m.shutdown(st))
		}

		next, err := m.Step(ctx, st)
		if err != nil {
			return multierr.Append(err, m.shutdown(st))
		}
		if next.Name() != st.Name() {
			m.enter(next)
		}
		st = next
	}
}

// Step runs one state and returns the next one.
func (m *Machine) Step(ctx context.Context, st State) (State, error) {
	switch s := st.(type) {
	case Init:
		return m.initHardware()
	case Connect:
		return m.connect(ctx, s)
	case InitAdcs:
		return m.initAdcs(s)
	case PollAdcs:
		return m.poll(s)
	case Abort:
		return m.abort(s)
	default:
		return nil, fmt.Errorf("board: unknown state %T", st)
	}
}

// ------------------------------------------------------------
// states
// ------------------------------------------------------------

func (m *Machine) initHardware() (State, error) {
	hw, err := m.open(m.cfg, m.clock, m.logger)
	if err != nil {
		m.status.Enter(Init{}.Name(), status.HealthError, status.ErrorHardware, m.clock.Now())
		m.sink.Log(logging.Error, logging.Sequences, "init", "hardware mapping failed", err.Error())
		return nil, fmt.Errorf("board: init: %w", err)
	}

	for _, c := range hw.Acquisition.Converters {
		if err := c.Init(); err != nil {
			m.sink.Log(logging.Error, logging.Sensors, c.Kind().String(), "converter init", err.Error())
			continue
		}
		m.sink.Log(logging.Debug, logging.Sensors, c.Kind().String(), "converter init", "registers programmed")
	}
	m.sink.Log(logging.Success, logging.Sequences, "init", "hardware ready",
		fmt.Sprintf("%d converters on %s", len(hw.Acquisition.Converters), hw.Pinout.Name))

	return Connect{hw: hw}, nil
}

func (m *Machine) connect(ctx context.Context, s Connect) (State, error) {
	retry := time.Duration(m.cfg.Handshake.RetryDelayMs) * time.Millisecond
	logger := m.logger.Named("net")

	sess, err := openSession(ctx, m.cfg)
	if err != nil {
		m.status.Enter(s.Name(), status.HealthError, status.ErrorNetwork, m.clock.Now())
		m.sink.Log(logging.Error, logging.Network, "connect", "network unavailable", err.Error())
		m.wait(ctx, retry)
		return s, nil
	}

	if err := sess.handshake(ctx, m.clock, m.cfg.Board.ID, m.cfg.Handshake, logger); err != nil {
		_ = sess.Close()
		if ctx.Err() != nil {
			return s, nil
		}
		m.status.Enter(s.Name(), status.HealthError, status.ErrorHandshake, m.clock.Now())
		m.sink.Log(logging.Error, logging.Network, "connect", "handshake failed", err.Error())
		m.wait(ctx, retry)
		return s, nil
	}
	m.sink.Log(logging.Success, logging.Network, "connect", "connected", sess.peer.String())

	sup := heartbeat.New(
		heartbeat.Config{
			Timeout: time.Duration(m.cfg.Heartbeat.TimeoutMs) * time.Millisecond,
			Poll:    time.Duration(m.cfg.Heartbeat.PollMs) * time.Millisecond,
			Peer:    sess.peer.IP,
		},
		sess.data,
		m.clock,
		m.logger.Named("heartbeat"),
		s.hw.Outputs.Safe,
	)
	sup.Start()

	return InitAdcs{hw: s.hw, sess: sess, sup: sup}, nil
}

func (m *Machine) initAdcs(s InitAdcs) (State, error) {
	for _, c := range s.hw.Acquisition.Converters {
		if err := c.Start(); err != nil {
			m.sink.Log(logging.Error, logging.Sensors, c.Kind().String(), "converter start", err.Error())
		}
	}
	s.hw.Acquisition.Poller.Reset()
	return PollAdcs{hw: s.hw, sess: s.sess, sup: s.sup}, nil
}

func (m *Machine) poll(s PollAdcs) (State, error) {
	select {
	case <-s.sup.Aborted():
		return Abort{hw: s.hw, sess: s.sess}, nil
	default:
	}

	m.drain(s)

	b := s.hw.Acquisition.Poller.RoundOnce()
	m.status.Round()
	if err := s.sess.out.Write(b.Points); err != nil && m.sendFaults.Allow() {
		m.sink.Log(logging.Error, logging.Network, "poll", "batch send failed", err.Error())
	}

	if d := time.Duration(m.cfg.Loop.DelayMs) * time.Millisecond; d > 0 {
		m.clock.Sleep(d)
	}
	return s, nil
}

// drain executes the commands received since the last iteration, at most
// maxCommands of them.
func (m *Machine) drain(s PollAdcs) {
	logger := m.logger.Named("net")
	for i := 0; i < maxCommands; i++ {
		cmd, ok := s.sess.nextCommand(logger)
		if !ok {
			return
		}
		src := fmt.Sprintf("channel %d", cmd.Channel)
		if err := s.hw.Outputs.Execute(cmd); err != nil {
			m.sink.Log(logging.Error, logging.Valves, src, "command rejected", err.Error())
			continue
		}
		m.sink.Log(logging.Success, logging.Valves, src, "command executed", fmt.Sprintf("powered=%t", cmd.Powered))
	}
}

// abort is idempotent: outputs only ever move to their safe level.
func (m *Machine) abort(s Abort) (State, error) {
	s.hw.Outputs.Safe()
	m.stopConverters(s.hw)
	m.status.Abort()
	m.sink.Log(logging.Error, logging.Sequences, "abort", "heartbeat lost", "outputs de-energized, converters stopped")

	if s.sess != nil {
		if err := s.sess.Close(); err != nil {
			m.logger.Warn("session close", zap.Error(err))
		}
	}
	return Connect{hw: s.hw, aborted: true}, nil
}

// ------------------------------------------------------------
// helpers
// ------------------------------------------------------------

func (m *Machine) stopConverters(hw *Hardware) {
	for _, c := range hw.Acquisition.Converters {
		if err := c.Stop(); err != nil {
			m.sink.Log(logging.Error, logging.Sensors, c.Kind().String(), "converter stop", err.Error())
		}
	}
}

// enter records a transition in the health tracker and logs it.
func (m *Machine) enter(st State) {
	now := m.clock.Now()
	cur := m.status.Snapshot(now)

	switch s := st.(type) {
	case Init:
		m.status.Enter(s.Name(), status.HealthUnknown, status.ErrorNone, now)
	case Connect:
		if s.aborted {
			m.status.Enter(s.Name(), status.HealthStale, status.ErrorHeartbeat, now)
		} else {
			m.status.Enter(s.Name(), cur.Health, cur.LastErrorCode, now)
		}
	case PollAdcs:
		m.status.Enter(s.Name(), status.HealthOK, status.ErrorNone, now)
	default:
		m.status.Enter(s.Name(), cur.Health, cur.LastErrorCode, now)
	}

	m.logger.Info("state",
		zap.String("from", cur.State),
		zap.String("to", st.Name()),
		zap.Object("status", m.status.Snapshot(now)),
	)
}

func (m *Machine) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-m.clock.After(d):
	}
}

// shutdown leaves the board safe and releases what st holds.
func (m *Machine) shutdown(st State) error {
	var (
		hw   *Hardware
		sess *session
	)
	switch s := st.(type) {
	case Connect:
		hw = s.hw
	case InitAdcs:
		hw, sess = s.hw, s.sess
	case PollAdcs:
		hw, sess = s.hw, s.sess
	case Abort:
		hw, sess = s.hw, s.sess
	}
	if hw == nil {
		return nil
	}

	hw.Outputs.Safe()
	m.stopConverters(hw)

	var err error
	if sess != nil {
		err = sess.Close()
	}
	return multierr.Append(err, hw.Close())
}

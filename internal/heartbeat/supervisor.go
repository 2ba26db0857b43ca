// internal/heartbeat/supervisor.go
package heartbeat

import (
	"errors"
	"net"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tamzrod/sam-firmware/internal/telemetry"
)

// Receiver is the data socket the supervisor owns for one session.
type Receiver interface {
	SetReadDeadline(t time.Time) error
	ReadFrom(b []byte) (int, net.Addr, error)
}

type Config struct {
	Timeout time.Duration // abort when no heartbeat for longer than this
	Poll    time.Duration // receive deadline per read

	// Peer is the flight computer. Heartbeats from any other host are
	// ignored. Nil accepts every sender.
	Peer net.IP
}

// Supervisor watches for flight computer heartbeats on the data socket.
// It raises abort once, after Timeout without a heartbeat, and then exits.
type Supervisor struct {
	cfg     Config
	conn    Receiver
	clock   clock.Clock
	logger  *zap.Logger
	onAbort func()

	lastSeen *atomic.Time
	aborted  *atomic.Bool
	abortCh  chan struct{}
	once     sync.Once
	done     chan struct{}

	faults     *rate.Limiter
	faultCount *atomic.Int64
}

// New arms a supervisor. The heartbeat clock starts at clk.Now().
// onAbort runs on the supervisor goroutine before Aborted is closed.
func New(cfg Config, conn Receiver, clk clock.Clock, logger *zap.Logger, onAbort func()) *Supervisor {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		cfg:        cfg,
		conn:       conn,
		clock:      clk,
		logger:     logger,
		onAbort:    onAbort,
		lastSeen:   atomic.NewTime(clk.Now()),
		aborted:    atomic.NewBool(false),
		abortCh:    make(chan struct{}),
		done:       make(chan struct{}),
		faults:     rate.NewLimiter(rate.Every(time.Second), 1),
		faultCount: atomic.NewInt64(0),
	}
}

// Start runs the supervisor on its own goroutine.
func (s *Supervisor) Start() {
	go s.Run()
}

// Run blocks until abort is raised or the socket is closed.
func (s *Supervisor) Run() {
	defer close(s.done)

	buf := make([]byte, telemetry.MaxDatagram)
	for {
		if s.expired() {
			s.abort()
			return
		}
		if !s.receive(buf) {
			return
		}
	}
}

// Aborted is closed when the supervisor raises abort.
func (s *Supervisor) Aborted() <-chan struct{} { return s.abortCh }

// Done is closed when Run returns.
func (s *Supervisor) Done() <-chan struct{} { return s.done }

func (s *Supervisor) IsAborted() bool { return s.aborted.Load() }

func (s *Supervisor) LastSeen() time.Time { return s.lastSeen.Load() }

// Beat records a heartbeat at the current clock time.
func (s *Supervisor) Beat() {
	s.lastSeen.Store(s.clock.Now())
}

func (s *Supervisor) expired() bool {
	return s.clock.Since(s.lastSeen.Load()) > s.cfg.Timeout
}

func (s *Supervisor) abort() {
	s.once.Do(func() {
		s.aborted.Store(true)
		s.logger.Error("heartbeat lost",
			zap.Duration("timeout", s.cfg.Timeout),
			zap.Time("last_seen", s.lastSeen.Load()),
		)
		if s.onAbort != nil {
			s.onAbort()
		}
		close(s.abortCh)
	})
}

// receive waits up to Poll for one datagram. It returns false when the
// socket has been closed under it.
func (s *Supervisor) receive(buf []byte) bool {
	if s.cfg.Poll > 0 {
		_ = s.conn.SetReadDeadline(time.Now().Add(s.cfg.Poll))
	}

	n, from, err := s.conn.ReadFrom(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return true
		}
		if errors.Is(err, net.ErrClosed) {
			s.logger.Debug("heartbeat socket closed")
			return false
		}
		s.fault("receive failed", err, from)
		return true
	}

	msg, err := telemetry.Decode(buf[:n])
	if err != nil {
		s.fault("discarding datagram", err, from)
		return true
	}

	switch msg.(type) {
	case telemetry.Heartbeat:
		if !s.fromPeer(from) {
			s.fault("heartbeat from unexpected host", errForeignHeartbeat, from)
			return true
		}
		s.Beat()
	default:
		s.logger.Debug("ignoring message on data socket", zap.Stringer("kind", msg.Kind()))
	}
	return true
}

var errForeignHeartbeat = errors.New("heartbeat: sender is not the flight computer")

func (s *Supervisor) fromPeer(from net.Addr) bool {
	if s.cfg.Peer == nil {
		return true
	}
	udp, ok := from.(*net.UDPAddr)
	return ok && udp.IP.Equal(s.cfg.Peer)
}

// fault logs at most once per second and reports how many were dropped.
func (s *Supervisor) fault(msg string, err error, from net.Addr) {
	skipped := s.faultCount.Inc()
	if !s.faults.Allow() {
		return
	}
	s.faultCount.Store(0)

	fields := []zap.Field{zap.Error(err), zap.Int64("count", skipped)}
	if from != nil {
		fields = append(fields, zap.Stringer("from", from))
	}
	s.logger.Warn(msg, fields...)
}

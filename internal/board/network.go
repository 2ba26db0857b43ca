// internal/board/network.go
package board

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/tamzrod/sam-firmware/internal/config"
	"github.com/tamzrod/sam-firmware/internal/telemetry"
	"github.com/tamzrod/sam-firmware/internal/writer"
)

var ErrHandshake = errors.New("board: flight computer did not acknowledge identity")

// commandPoll bounds how long one read waits on an empty command socket.
const commandPoll = 200 * time.Microsecond

// lookupIP is the name resolver.
var lookupIP = net.DefaultResolver.LookupIP

// session is the network state of one Connect-to-Abort cycle.
type session struct {
	peer    *net.UDPAddr
	data    *net.UDPConn // identity, batches out; acknowledgment, heartbeats in
	command *net.UDPConn // commands in, read by the control loop only
	out     writer.Writer

	cmdBuf []byte
}

func (s *session) Close() error {
	return multierr.Combine(s.data.Close(), s.command.Close())
}

// resolve looks the flight computer up, preferring an IPv4 address.
func resolve(ctx context.Context, host string, port int) (*net.UDPAddr, error) {
	if ip := net.ParseIP(host); ip != nil {
		return &net.UDPAddr{IP: ip, Port: port}, nil
	}
	ips, err := lookupIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("board: resolve %s: %w", host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("board: resolve %s: no addresses", host)
	}
	ip, ok := lo.Find(ips, func(ip net.IP) bool { return ip.To4() != nil })
	if !ok {
		ip = ips[0]
	}
	return &net.UDPAddr{IP: ip, Port: port}, nil
}

// openSession resolves the peer and opens both sockets.
func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	peer, err := resolve(ctx, cfg.FlightComputer.Host, cfg.FlightComputer.DataPort)
	if err != nil {
		return nil, err
	}

	data, err := net.ListenUDP("udp", &net.UDPAddr{Port: cfg.Network.DataPort})
	if err != nil {
		return nil, fmt.Errorf("board: data socket: %w", err)
	}
	command, err := net.ListenUDP("udp", &net.UDPAddr{Port: cfg.Network.CommandPort})
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("board: command socket :%d: %w", cfg.Network.CommandPort, err), data.Close())
	}

	s := &session{
		peer:    peer,
		data:    data,
		command: command,
		out:     writer.New(cfg.Board.ID, data, peer),
		cmdBuf:  make([]byte, telemetry.MaxDatagram),
	}
	return s, nil
}

// handshake announces the board until the flight computer answers with an
// Identity, or attempts run out.
func (s *session) handshake(ctx context.Context, clk clock.Clock, boardID string, hc config.HandshakeConfig, logger *zap.Logger) error {
	timeout := time.Duration(hc.TimeoutMs) * time.Millisecond
	retry := time.Duration(hc.RetryDelayMs) * time.Millisecond
	buf := make([]byte, telemetry.MaxDatagram)

	for attempt := 1; attempt <= hc.Attempts; attempt++ {
		if err := writer.Announce(s.data, s.peer, boardID); err != nil {
			logger.Warn("identity send failed", zap.Int("attempt", attempt), zap.Error(err))
		} else if s.awaitAck(buf, timeout, logger) {
			return nil
		}

		if attempt == hc.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clk.After(retry):
		}
	}
	return fmt.Errorf("%w after %d attempts", ErrHandshake, hc.Attempts)
}

// awaitAck reads the data socket until an Identity arrives from the peer
// or timeout elapses.
func (s *session) awaitAck(buf []byte, timeout time.Duration, logger *zap.Logger) bool {
	_ = s.data.SetReadDeadline(time.Now().Add(timeout))
	defer s.data.SetReadDeadline(time.Time{})

	for {
		n, from, err := s.data.ReadFromUDP(buf)
		if err != nil {
			if !errors.Is(err, os.ErrDeadlineExceeded) {
				logger.Warn("handshake receive failed", zap.Error(err))
			}
			return false
		}
		if !from.IP.Equal(s.peer.IP) {
			continue
		}
		msg, err := telemetry.Decode(buf[:n])
		if err != nil {
			logger.Warn("discarding datagram", zap.Error(err), zap.Stringer("from", from))
			continue
		}
		if id, ok := msg.(telemetry.Identity); ok {
			logger.Info("flight computer acknowledged", zap.String("fc_id", id.BoardID), zap.Stringer("from", from))
			return true
		}
	}
}

// nextCommand returns the next Command waiting on the command socket.
// It waits at most commandPoll and reports false when nothing is queued.
func (s *session) nextCommand(logger *zap.Logger) (telemetry.Command, bool) {
	for {
		_ = s.command.SetReadDeadline(time.Now().Add(commandPoll))
		n, from, err := s.command.ReadFromUDP(s.cmdBuf)
		if err != nil {
			if !errors.Is(err, os.ErrDeadlineExceeded) && !errors.Is(err, net.ErrClosed) {
				logger.Warn("command receive failed", zap.Error(err))
			}
			return telemetry.Command{}, false
		}

		msg, err := telemetry.Decode(s.cmdBuf[:n])
		if err != nil {
			logger.Warn("discarding command datagram", zap.Error(err), zap.Stringer("from", from))
			continue
		}
		cmd, ok := msg.(telemetry.Command)
		if !ok {
			logger.Debug("ignoring message on command socket", zap.Stringer("kind", msg.Kind()))
			continue
		}
		return cmd, true
	}
}

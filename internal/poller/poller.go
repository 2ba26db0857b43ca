// internal/poller/poller.go
package poller

import (
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/tamzrod/sam-firmware/internal/rail"
	"github.com/tamzrod/sam-firmware/internal/telemetry"
)

// Sentinel replaces a converter value that could not be read.
const Sentinel = rail.Sentinel

// Config is the minimal runtime config the poller needs.
type Config struct {
	Interval time.Duration // bench ticker only
}

// Poller drives every converter once per channel per round.
// It is used from a single goroutine.
type Poller struct {
	cfg        Config
	converters []Converter
	rail       rail.Source
	clock      clock.Clock
	logger     *zap.Logger

	maxChannels int
	capacity    int
	round       uint64
}

// New creates a poller. rail may be nil.
func New(cfg Config, converters []Converter, src rail.Source, clk clock.Clock, logger *zap.Logger) (*Poller, error) {
	if len(converters) == 0 && src == nil {
		return nil, errors.New("poller: at least one converter or rail source required")
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Poller{
		cfg:        cfg,
		converters: converters,
		rail:       src,
		clock:      clk,
		logger:     logger,
	}
	for _, c := range converters {
		n := c.Kind().Channels()
		if n == 0 {
			return nil, errors.New("poller: converter with unknown kind")
		}
		if n > p.maxChannels {
			p.maxChannels = n
		}
		p.capacity += n
	}
	if src != nil {
		p.capacity++
	}
	return p, nil
}

// Round returns the index of the next round.
func (p *Poller) Round() uint64 { return p.round }

// Reset restarts round numbering, after converters were re-armed.
func (p *Poller) Reset() { p.round = 0 }

// RoundOnce performs exactly one acquisition round.
// Iteration i reads every converter that has a channel i, in order.
// One rail channel follows, chosen by round number.
func (p *Poller) RoundOnce() Batch {
	b := Batch{
		Round:  p.round,
		At:     p.clock.Now(),
		Points: make([]telemetry.DataPoint, 0, p.capacity),
	}

	for it := 0; it < p.maxChannels; it++ {
		iteration := uint64(it)
		for _, c := range p.converters {
			kind := c.Kind()
			if it >= kind.Channels() {
				continue
			}

			v, err := c.Read(iteration)
			ts := p.stamp()
			if err != nil {
				b.Faults = append(b.Faults, Fault{Source: kind.String(), Iteration: iteration, Err: err})
				p.logger.Warn("converter read failed",
					zap.Stringer("kind", kind),
					zap.Uint64("iteration", iteration),
					zap.Error(err),
				)
				v = Sentinel
			}

			id, ok := kind.ChannelID(iteration)
			if !ok {
				continue
			}
			b.Points = append(b.Points, telemetry.DataPoint{
				Channel:     id,
				ChannelType: kind.ChannelType(),
				Value:       v,
				Timestamp:   ts,
			})
		}
	}

	if p.rail != nil && p.rail.Channels() > 0 {
		idx := int(p.round % uint64(p.rail.Channels()))
		r, err := p.rail.Read(idx)
		if err != nil {
			b.Faults = append(b.Faults, Fault{Source: "rail", Iteration: uint64(idx), Err: err})
			p.logger.Warn("rail read failed", zap.Int("index", idx), zap.Error(err))
		}
		b.Points = append(b.Points, telemetry.DataPoint{
			Channel:     r.Channel,
			ChannelType: r.Type,
			Value:       r.Value,
			Timestamp:   p.stamp(),
		})
	}

	p.round++
	return b
}

// stamp is the current time as Unix seconds.
func (p *Poller) stamp() float64 {
	return float64(p.clock.Now().UnixNano()) / 1e9
}

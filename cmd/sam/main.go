// cmd/sam/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"periph.io/x/host/v3"

	"github.com/tamzrod/sam-firmware/internal/board"
	"github.com/tamzrod/sam-firmware/internal/config"
	"github.com/tamzrod/sam-firmware/internal/logging"
	"github.com/tamzrod/sam-firmware/internal/poller"
)

const (
	flagConfig   = "config"
	flagRevision = "revision"
)

var app = &cli.App{
	Name:  "sam",
	Usage: "board acquisition and actuation firmware",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "path to the board config",
			Value:   "/etc/sam/sam.yaml",
			EnvVars: []string{"SAM_CONFIG"},
		},
	},
	Commands: []*cli.Command{
		{
			Name:   "run",
			Usage:  "connect to the flight computer and stream telemetry",
			Action: runAction,
		},
		{
			Name:   "bench",
			Usage:  "run acquisition rounds on a ticker and log them, no network",
			Action: benchAction,
		},
		{
			Name:  "pinout",
			Usage: "print the resolved pin table",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  flagRevision,
					Usage: "print an embedded revision instead of the config's",
				},
			},
			Action: pinoutAction,
		},
	},
	Action: runAction,
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// --------------------
// Load + validate config
// --------------------

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if err := config.Normalize(cfg); err != nil {
		return nil, fmt.Errorf("config normalize failed: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, func() error, error) {
	return logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

// --------------------
// Commands
// --------------------

func runAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	if _, err := host.Init(); err != nil {
		logger.Fatal("periph host init failed", zap.Error(err))
	}

	ctx, stop := signalContext(c)
	defer stop()

	logger.Info("starting",
		zap.String("board", cfg.Board.ID),
		zap.String("revision", cfg.Board.Revision),
		zap.String("flight_computer", cfg.FlightComputer.Host),
	)

	m := board.New(cfg, board.Options{Logger: logger})
	if err := m.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("board halted", zap.Error(err), zap.Object("status", m.Status()))
		return err
	}
	logger.Info("stopped", zap.Object("status", m.Status()))
	return nil
}

func benchAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	if _, err := host.Init(); err != nil {
		logger.Fatal("periph host init failed", zap.Error(err))
	}

	hw, err := board.OpenHardware(cfg, clock.New(), logger)
	if err != nil {
		return fmt.Errorf("hardware init failed: %w", err)
	}
	defer hw.Close()
	defer hw.Outputs.Safe()

	for _, conv := range hw.Acquisition.Converters {
		if err := conv.Init(); err != nil {
			logger.Warn("converter init", zap.Stringer("kind", conv.Kind()), zap.Error(err))
		}
		if err := conv.Start(); err != nil {
			logger.Warn("converter start", zap.Stringer("kind", conv.Kind()), zap.Error(err))
		}
	}

	ctx, stop := signalContext(c)
	defer stop()

	out := make(chan poller.Batch)
	go func() {
		for b := range out {
			logger.Info("round",
				zap.Uint64("round", b.Round),
				zap.Int("points", len(b.Points)),
				zap.Int("faults", len(b.Faults)),
			)
			for _, p := range b.Points {
				logger.Debug("point",
					zap.Uint32("channel", p.Channel),
					zap.Stringer("type", p.ChannelType),
					zap.Float64("value", p.Value),
				)
			}
		}
	}()

	err = hw.Acquisition.Poller.Run(ctx, out)
	close(out)
	for _, conv := range hw.Acquisition.Converters {
		_ = conv.Stop()
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func pinoutAction(c *cli.Context) error {
	var (
		p   *config.Pinout
		err error
	)
	if rev := c.String(flagRevision); rev != "" {
		p, err = config.LoadPinout(rev)
	} else {
		var cfg *config.Config
		cfg, err = config.Load(c.String(flagConfig))
		if err == nil {
			p, err = config.ResolvePinout(cfg)
		}
	}
	if err != nil {
		return err
	}
	if err := config.ValidatePinout(p); err != nil {
		return err
	}

	enc := yaml.NewEncoder(c.App.Writer)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(p)
}

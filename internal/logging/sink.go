// internal/logging/sink.go
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Severity uint8

const (
	Debug Severity = iota
	Standard
	Error
	Success
)

func (s Severity) String() string {
	switch s {
	case Debug:
		return "debug"
	case Standard:
		return "standard"
	case Error:
		return "error"
	case Success:
		return "success"
	default:
		return fmt.Sprintf("severity(%d)", uint8(s))
	}
}

func (s Severity) level() zapcore.Level {
	switch s {
	case Debug:
		return zapcore.DebugLevel
	case Error:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

type Category uint8

const (
	Unknown Category = iota
	Sequences
	Network
	Valves
	Sensors
	Other
)

func (c Category) String() string {
	switch c {
	case Sequences:
		return "sequences"
	case Network:
		return "network"
	case Valves:
		return "valves"
	case Sensors:
		return "sensors"
	case Other:
		return "other"
	default:
		return "unknown"
	}
}

// Sink accepts board events.
type Sink interface {
	Log(sev Severity, cat Category, source, header, body string)
}

// ZapSink writes events to a zap logger.
type ZapSink struct {
	l *zap.Logger
}

func NewZapSink(l *zap.Logger) *ZapSink {
	return &ZapSink{l: l}
}

func (s *ZapSink) Log(sev Severity, cat Category, source, header, body string) {
	ce := s.l.Check(sev.level(), body)
	if ce == nil {
		return
	}
	ce.Write(
		zap.Stringer("severity", sev),
		zap.Stringer("category", cat),
		zap.String("source", source),
		zap.String("header", header),
	)
}

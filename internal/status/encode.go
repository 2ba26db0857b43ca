// internal/status/encode.go
package status

import "go.uber.org/zap/zapcore"

// MarshalLogObject lets a Snapshot be logged with zap.Object.
// No IO. No side effects.
func (s Snapshot) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("state", s.State)
	enc.AddString("health", HealthName(s.Health))
	enc.AddUint16("last_error_code", s.LastErrorCode)
	enc.AddUint16("seconds_in_error", s.SecondsInError)
	enc.AddUint64("aborts", s.Aborts)
	enc.AddUint64("rounds", s.Rounds)
	return nil
}

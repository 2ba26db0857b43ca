// internal/status/constants.go
package status

// Board health constants.
// These values are reported to the operator and MUST NOT be configurable.

// ---- HEALTH CODES ----

// HealthUnknown represents an unknown or boot state.
const HealthUnknown uint16 = 0

// HealthOK represents a board streaming telemetry.
const HealthOK uint16 = 1

// HealthError represents a board that failed to reach the flight computer.
const HealthError uint16 = 2

// HealthStale represents a board reconnecting after an abort.
const HealthStale uint16 = 3

// HealthDisabled represents a board with no acquisition configured.
const HealthDisabled uint16 = 4

// ---- ERROR CODES ----

// ErrorNone means no error since the last healthy state.
const ErrorNone uint16 = 0

// ErrorHardware is a register mapping or bus open failure.
const ErrorHardware uint16 = 1

// ErrorNetwork is a resolution or socket failure.
const ErrorNetwork uint16 = 2

// ErrorHandshake is an unanswered Identity exchange.
const ErrorHandshake uint16 = 3

// ErrorHeartbeat is a heartbeat timeout.
const ErrorHeartbeat uint16 = 4

// HealthName returns the log name of a health code.
func HealthName(h uint16) string {
	switch h {
	case HealthOK:
		return "ok"
	case HealthError:
		return "error"
	case HealthStale:
		return "stale"
	case HealthDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// internal/poller/types.go
package poller

import (
	"time"

	"github.com/tamzrod/sam-firmware/internal/adc"
	"github.com/tamzrod/sam-firmware/internal/telemetry"
)

// Converter abstracts the driver calls the poller needs.
// *adc.Converter implements it.
type Converter interface {
	Kind() adc.Kind
	Read(iteration uint64) (float64, error)
}

// Fault is one absorbed read failure inside a round.
type Fault struct {
	Source    string // converter kind or "rail"
	Iteration uint64
	Err       error
}

// Batch is what one acquisition round produced.
type Batch struct {
	Round  uint64
	At     time.Time
	Points []telemetry.DataPoint

	// Faults were logged and replaced by sentinel values.
	// The round itself never fails.
	Faults []Fault
}

// internal/config/pinout.go
package config

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tamzrod/sam-firmware/internal/gpio"
)

//go:embed pinouts/*.yaml
var pinoutFS embed.FS

// Pinout is the physical pin table for one board revision.
type Pinout struct {
	Name       string                   `yaml:"name"`
	Converters map[string]ConverterPins `yaml:"converters"` // keyed by adc kind name
	Outputs    []OutputPin              `yaml:"outputs"`
	Lines      []LinePin                `yaml:"lines"`
}

type PinRef struct {
	Bank int `yaml:"bank"`
	Bit  int `yaml:"bit"`
}

func (p PinRef) String() string { return fmt.Sprintf("gpio%d_%d", p.Bank, p.Bit) }

type ConverterPins struct {
	CS   *PinRef `yaml:"cs"`
	DRDY *PinRef `yaml:"drdy"`
}

type OutputPin struct {
	Channel uint32 `yaml:"channel"`
	Name    string `yaml:"name"`
	PinRef  `yaml:",inline"`
	Active  string `yaml:"active"`
	Safe    string `yaml:"safe"`
}

type LinePin struct {
	Name   string `yaml:"name"`
	PinRef `yaml:",inline"`
	Safe   string `yaml:"safe"`
}

// Revisions lists the embedded pinout names.
func Revisions() []string {
	entries, err := pinoutFS.ReadDir("pinouts")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(out)
	return out
}

// LoadPinout parses the embedded table for revision.
func LoadPinout(revision string) (*Pinout, error) {
	b, err := pinoutFS.ReadFile("pinouts/" + revision + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("config: unknown board revision %q (have %s)", revision, strings.Join(Revisions(), ", "))
	}
	var p Pinout
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("config: pinout %s: %w", revision, err)
	}
	if p.Name == "" {
		p.Name = revision
	}
	return &p, nil
}

// ResolvePinout returns the inline table when present, else the embedded one.
func ResolvePinout(cfg *Config) (*Pinout, error) {
	if cfg.Pinout != nil {
		return cfg.Pinout, nil
	}
	if cfg.Board.Revision == "" {
		return nil, fmt.Errorf("config: board.revision or pinout required")
	}
	return LoadPinout(cfg.Board.Revision)
}

// ParseLevel maps "high" / "low" to a gpio level.
func ParseLevel(s string) (gpio.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "1":
		return gpio.High, nil
	case "low", "0":
		return gpio.Low, nil
	default:
		return gpio.Low, fmt.Errorf("config: invalid level %q", s)
	}
}

// internal/rail/sysfs.go
package rail

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultNodeFormat is the IIO raw node for channel N.
const DefaultNodeFormat = "/sys/bus/iio/devices/iio:device0/in_voltage%d_raw"

// lsb of the 12 bit, 1.8 V onboard converter
const sysfsLSB = 1.8 / 4096

// Node binds a channel to its raw value file.
type Node struct {
	Path string
	Channel
}

// DefaultNodes returns the IIO nodes for DefaultChannels.
func DefaultNodes() []Node {
	chs := DefaultChannels()
	out := make([]Node, len(chs))
	for i, ch := range chs {
		out[i] = Node{Path: fmt.Sprintf(DefaultNodeFormat, i), Channel: ch}
	}
	return out
}

// Sysfs reads plain text raw integers from fixed files.
type Sysfs struct {
	nodes    []Node
	readFile func(string) ([]byte, error)
}

func NewSysfs(nodes []Node) (*Sysfs, error) {
	if len(nodes) == 0 {
		return nil, errors.New("rail: at least one node required")
	}
	for i, n := range nodes {
		if n.Path == "" {
			return nil, fmt.Errorf("rail: node %d: path required", i)
		}
	}
	return &Sysfs{nodes: nodes, readFile: os.ReadFile}, nil
}

func (s *Sysfs) Channels() int { return len(s.nodes) }

func (s *Sysfs) Read(index int) (Reading, error) {
	if index < 0 || index >= len(s.nodes) {
		return Reading{Value: Sentinel}, fmt.Errorf("rail: index %d out of range", index)
	}
	n := s.nodes[index]

	b, err := s.readFile(n.Path)
	if err != nil {
		return sentinel(n.Channel), fmt.Errorf("rail: read %s: %w", n.Path, err)
	}
	raw, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return sentinel(n.Channel), fmt.Errorf("rail: parse %s: %w", n.Path, err)
	}

	return Reading{
		Channel: n.ID,
		Type:    n.Type,
		Value:   float64(raw) * sysfsLSB * n.Scale,
	}, nil
}

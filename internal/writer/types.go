// internal/writer/types.go
package writer

import (
	"net"

	"github.com/tamzrod/sam-firmware/internal/telemetry"
)

// packetConn is the part of net.PacketConn the writer uses.
type packetConn interface {
	WriteTo(b []byte, addr net.Addr) (int, error)
}

// Writer delivers one acquisition round to the flight computer.
type Writer interface {
	Write(points []telemetry.DataPoint) error
}

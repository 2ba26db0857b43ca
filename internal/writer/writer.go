// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"
	"net"

	"github.com/tamzrod/sam-firmware/internal/telemetry"
)

var ErrTooLarge = errors.New("writer: batch exceeds datagram size")

type udpWriter struct {
	boardID string
	conn    packetConn
	peer    net.Addr

	buf []byte // reused encode buffer; Write is not concurrent
}

// New returns a Writer that tags every batch with boardID and sends it to
// peer over conn. One round is one datagram.
func New(boardID string, conn packetConn, peer net.Addr) Writer {
	return &udpWriter{
		boardID: boardID,
		conn:    conn,
		peer:    peer,
	}
}

func (w *udpWriter) Write(points []telemetry.DataPoint) error {
	b, err := telemetry.Append(w.buf[:0], telemetry.SensorBatch{
		BoardID: w.boardID,
		Points:  points,
	})
	if err != nil {
		return err
	}
	w.buf = b

	if len(b) > telemetry.MaxDatagram {
		return fmt.Errorf("%w: %d points, %d bytes", ErrTooLarge, len(points), len(b))
	}

	n, err := w.conn.WriteTo(b, w.peer)
	if err != nil {
		return fmt.Errorf("writer: send to %s: %w", w.peer, err)
	}
	if n != len(b) {
		return fmt.Errorf("writer: short write to %s (%d of %d bytes)", w.peer, n, len(b))
	}
	return nil
}

// Announce sends one Identity message for boardID to peer.
func Announce(conn packetConn, peer net.Addr, boardID string) error {
	b, err := telemetry.Encode(telemetry.Identity{BoardID: boardID})
	if err != nil {
		return err
	}
	if _, err := conn.WriteTo(b, peer); err != nil {
		return fmt.Errorf("writer: identity to %s: %w", peer, err)
	}
	return nil
}

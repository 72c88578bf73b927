package server

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"

	"github.com/packetlog/packetlogd/logfile"
	"github.com/packetlog/packetlogd/metrics"
	"github.com/packetlog/packetlogd/packet"
	"github.com/packetlog/packetlogd/utils/log"
)

// recvBufferSize is the per-read chunk size from the client socket.
const recvBufferSize = 1024

// errDraining aborts packet processing when shutdown is observed between
// packets. It never leaves the session.
var errDraining = errors.New("server draining")

// Session drives one accepted connection: read chunks, assemble packets,
// append each complete packet to the shared data file, echo the whole file
// back.
type Session struct {
	id       uuid.UUID
	conn     net.Conn
	peer     string
	data     *logfile.AppendLog
	asm      *packet.Assembler
	registry *Registry
	shutdown *atomic.Bool

	closeOnce sync.Once
}

func newSession(conn net.Conn, data *logfile.AppendLog, registry *Registry,
	shutdown *atomic.Bool, maxPacketSize int,
) *Session {
	return &Session{
		id:       uuid.New(),
		conn:     conn,
		peer:     conn.RemoteAddr().String(),
		data:     data,
		asm:      packet.NewAssembler(maxPacketSize),
		registry: registry,
		shutdown: shutdown,
	}
}

// run is the session main loop. It owns the connection and guarantees the
// close/deregister sequence on every exit path.
func (s *Session) run() {
	defer s.close()

	log.Info("[session %s] accepted connection from %s", s.id, s.peer)

	buf := make([]byte, recvBufferSize)
	for !s.shutdown.Load() {
		n, err := s.conn.Read(buf)
		if n > 0 {
			if ferr := s.asm.Feed(buf[:n], s.handlePacket); ferr != nil {
				if errors.Is(ferr, packet.ErrPacketTooLarge) {
					log.Error("[session %s] %v, discarding connection", s.id, ferr)
				}
				return
			}
		}
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				log.Info("[session %s] client %s disconnected", s.id, s.peer)
			case errors.Is(err, syscall.EINTR):
				continue
			case s.shutdown.Load():
				// Read unblocked by the registry closing our socket.
			default:
				log.Error("[session %s] receive from %s: %v", s.id, s.peer, err)
			}
			return
		}
	}
}

// handlePacket appends one complete packet and echoes the full data file
// back to the client. An append failure skips the echo but keeps the
// session alive; an echo failure aborts that echo only.
func (s *Session) handlePacket(pkt []byte) error {
	if s.shutdown.Load() {
		return errDraining
	}

	if err := s.data.Append(pkt); err != nil {
		log.Error("[session %s] append %d byte packet: %v", s.id, len(pkt), err)
		return nil
	}
	metrics.PacketsLoggedTotal.Inc()
	metrics.BytesAppendedTotal.Add(float64(len(pkt)))

	n, err := s.data.WriteTo(s.conn)
	metrics.EchoBytesTotal.Add(float64(n))
	if err != nil {
		log.Error("[session %s] echo data file to %s: %v", s.id, s.peer, err)
	}
	return nil
}

// forceClose unblocks a session parked in conn.Read by closing the socket
// out from under it. Called by the registry during shutdown; the session's
// own loop performs the rest of the teardown.
func (s *Session) forceClose() {
	s.conn.Close()
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.conn.Close()
		s.registry.Deregister(s)
		metrics.ActiveSessions.Dec()
		log.Info("[session %s] closed connection from %s", s.id, s.peer)
	})
}

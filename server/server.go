// Package server implements the packetlogd TCP server: an accept loop that
// spawns one goroutine per admitted connection, a registry that tracks and
// drains them, and a shutdown sequence that removes the shared data file
// only after every session has exited.
package server

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/packetlog/packetlogd/logfile"
	"github.com/packetlog/packetlogd/metrics"
	"github.com/packetlog/packetlogd/utils"
	"github.com/packetlog/packetlogd/utils/log"
)

// admissionBackoff is how long the accept loop sleeps while the session
// table is at capacity. Pending clients wait in the listen backlog.
const admissionBackoff = 100 * time.Millisecond

// Server owns the listener, the shared data file, and the session registry.
// Construct with New, then Listen, then Serve; Shutdown may be called from
// any goroutine (typically the signal handler) and is safe to call more
// than once.
type Server struct {
	cfg      *utils.Config
	data     *logfile.AppendLog
	registry *Registry

	listener net.Listener
	shutdown atomic.Bool
	done     chan struct{}
	stopOnce sync.Once
	bg       sync.WaitGroup
}

func New(cfg *utils.Config) *Server {
	return &Server{
		cfg:      cfg,
		data:     logfile.New(cfg.DataFile),
		registry: NewRegistry(cfg.MaxConnections),
		done:     make(chan struct{}),
	}
}

// DataLog exposes the shared data file, for the timestamp worker and tests.
func (s *Server) DataLog() *logfile.AppendLog {
	return s.data
}

// Listen binds the configured address. A bind failure is fatal to startup.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddr(), err)
	}
	s.listener = ln
	if s.cfg.MaxConnections > 0 {
		log.Info("listening on %s (max %d concurrent connections)", ln.Addr(), s.cfg.MaxConnections)
	} else {
		log.Info("listening on %s", ln.Addr())
	}
	return nil
}

// Addr returns the bound listener address. Valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve runs the accept loop until Shutdown, then drains all sessions,
// stops background workers, and removes the data file. It returns only
// after the drain is complete.
func (s *Server) Serve() error {
	if s.cfg.TimestampInterval > 0 {
		s.bg.Add(1)
		go func() {
			defer s.bg.Done()
			s.runTimestamper(s.cfg.TimestampInterval)
		}()
	}

	for !s.shutdown.Load() {
		if !s.registry.CanAdmit() {
			metrics.ConnectionsRefusedTotal.Inc()
			time.Sleep(admissionBackoff)
			continue
		}

		conn, err := s.listener.Accept()
		if err != nil {
			if s.shutdown.Load() {
				break
			}
			log.Error("accept: %v", err)
			continue
		}

		sess := newSession(conn, s.data, s.registry, &s.shutdown, s.cfg.MaxPacketSize)
		if !s.registry.Register(sess) {
			// Lost the race for the last slot, or shutdown began between
			// the admission check and here.
			conn.Close()
			metrics.ConnectionsRefusedTotal.Inc()
			continue
		}
		metrics.ConnectionsAcceptedTotal.Inc()
		metrics.ActiveSessions.Inc()
		go sess.run()
	}

	s.drain()
	return nil
}

// Shutdown requests a graceful stop: it sets the shutdown flag and closes
// the listener so a blocked Accept returns. The drain itself happens on the
// Serve goroutine.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() {
		log.Info("caught shutdown request, exiting")
		s.shutdown.Store(true)
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
	})
}

// drain stops admission, force-closes every live session, waits for all of
// them plus background workers, and only then removes the data file, so no
// in-flight append or read can touch the file after removal.
func (s *Server) drain() {
	log.Info("draining %d active sessions", s.registry.Live())
	s.registry.ShutdownAll()
	s.registry.Wait()
	s.bg.Wait()

	if err := s.data.Remove(); err != nil {
		log.Error("%v", err)
	}
	log.Info("server shutdown complete")
}

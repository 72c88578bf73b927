package server

import (
	"fmt"
	"time"

	"github.com/packetlog/packetlogd/metrics"
	"github.com/packetlog/packetlogd/utils/log"
)

// timestampFormat is an RFC-822-style date, matching the literal
// "timestamp:<date>" lines interleaved into the data file.
const timestampFormat = time.RFC1123Z

// runTimestamper appends a timestamp line to the data file at every
// interval tick. It observes the server's done channel so shutdown never
// waits out a full interval.
func (s *Server) runTimestamper(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	log.Info("timestamp worker started, interval %v", interval)
	for {
		select {
		case <-t.C:
			line := fmt.Sprintf("timestamp:%s\n", time.Now().Format(timestampFormat))
			if err := s.data.Append([]byte(line)); err != nil {
				log.Error("append timestamp line: %v", err)
				continue
			}
			metrics.BytesAppendedTotal.Add(float64(len(line)))
		case <-s.done:
			log.Info("timestamp worker stopped")
			return
		}
	}
}

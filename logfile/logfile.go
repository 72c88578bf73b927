// Package logfile owns the shared append-only data file. Every session in
// the server funnels through a single AppendLog instance, whose mutex is
// what keeps one client's echo from observing another client's half-written
// packet.
package logfile

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"syscall"
)

const (
	// fileMode is applied when the data file is first created.
	fileMode = 0o644
	// chunkSize is the unit for streaming the file out to a sink.
	chunkSize = 1024
)

// ErrShortWrite reports an append that committed fewer bytes than requested.
var ErrShortWrite = errors.New("logfile: short write to data file")

// AppendLog serializes append and read access to one on-disk file. The file
// is created lazily on first Append and is expected to be removed exactly
// once, by the server, after all sessions have drained.
type AppendLog struct {
	mu   sync.Mutex
	path string
}

func New(path string) *AppendLog {
	return &AppendLog{path: path}
}

// Path returns the location of the data file.
func (l *AppendLog) Path() string {
	return l.path
}

// Append writes data as one atomic operation with respect to WriteTo and
// other Append calls. The file stays open only for the duration of the
// write.
func (l *AppendLog) Append(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	fp, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, fileMode)
	if err != nil {
		return fmt.Errorf("open data file for append: %w", err)
	}

	n, err := fp.Write(data)
	if err != nil {
		fp.Close()
		return fmt.Errorf("append to data file: %w", err)
	}
	if n != len(data) {
		fp.Close()
		return ErrShortWrite
	}

	if err := fp.Close(); err != nil {
		return fmt.Errorf("close data file after append: %w", err)
	}
	return nil
}

// WriteTo streams the entire current file content to w in chunkSize pieces.
// A data file that does not exist yet writes nothing and is not an error.
// Sink writes interrupted by a signal are retried; any other sink error
// aborts the stream. The same mutex as Append is held throughout, so a
// caller never observes a partially appended packet.
func (l *AppendLog) WriteTo(w io.Writer) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fp, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("open data file for read: %w", err)
	}
	defer fp.Close()

	var total int64
	buf := make([]byte, chunkSize)
	for {
		n, err := fp.Read(buf)
		if n > 0 {
			if werr := writeFull(w, buf[:n]); werr != nil {
				return total, fmt.Errorf("send data file content: %w", werr)
			}
			total += int64(n)
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, fmt.Errorf("read data file: %w", err)
		}
	}
}

// Remove unlinks the data file. A file that is already gone counts as
// success.
func (l *AppendLog) Remove() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove data file: %w", err)
	}
	return nil
}

// writeFull pushes all of buf to w, retrying writes that fail with EINTR.
func writeFull(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		buf = buf[n:]
		if err != nil {
			if errors.Is(err, syscall.EINTR) {
				continue
			}
			return err
		}
	}
	return nil
}

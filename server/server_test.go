package server

import (
	"bytes"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetlog/packetlogd/utils"
)

func testConfig(t *testing.T) *utils.Config {
	t.Helper()
	return &utils.Config{
		ListenHost:    "127.0.0.1",
		ListenPort:    "0",
		DataFile:      filepath.Join(t.TempDir(), "pkt.data"),
		MaxPacketSize: utils.DefaultMaxPacketSize,
	}
}

// startServer runs a server and returns it plus a channel closed when Serve
// returns. The server is shut down at test cleanup.
func startServer(t *testing.T, cfg *utils.Config) (*Server, <-chan struct{}) {
	t.Helper()
	s := New(cfg)
	require.NoError(t, s.Listen())

	served := make(chan struct{})
	go func() {
		defer close(served)
		_ = s.Serve()
	}()

	t.Cleanup(func() {
		s.Shutdown()
		select {
		case <-served:
		case <-time.After(5 * time.Second):
			t.Error("server did not drain within 5s")
		}
	})
	return s, served
}

func dial(t *testing.T, s *Server) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendAndReadEcho(t *testing.T, conn net.Conn, pkt string, wantEcho string) {
	t.Helper()
	_, err := conn.Write([]byte(pkt))
	require.NoError(t, err)

	got := make([]byte, len(wantEcho))
	_, err = io.ReadFull(conn, got)
	require.NoError(t, err)
	assert.Equal(t, wantEcho, string(got))
}

func TestEchoAccumulatesAcrossPackets(t *testing.T) {
	t.Parallel()
	s, _ := startServer(t, testConfig(t))
	conn := dial(t, s)

	sendAndReadEcho(t, conn, "first\n", "first\n")
	sendAndReadEcho(t, conn, "second\n", "first\nsecond\n")
	sendAndReadEcho(t, conn, "third\n", "first\nsecond\nthird\n")
}

func TestEchoIncludesOtherConnectionsPackets(t *testing.T) {
	t.Parallel()
	s, _ := startServer(t, testConfig(t))

	c1 := dial(t, s)
	sendAndReadEcho(t, c1, "from c1\n", "from c1\n")

	c2 := dial(t, s)
	sendAndReadEcho(t, c2, "from c2\n", "from c1\nfrom c2\n")

	sendAndReadEcho(t, c1, "c1 again\n", "from c1\nfrom c2\nc1 again\n")
}

func TestPartialPacketHeldAcrossWrites(t *testing.T) {
	t.Parallel()
	s, _ := startServer(t, testConfig(t))
	conn := dial(t, s)

	_, err := conn.Write([]byte("split "))
	require.NoError(t, err)
	// Nothing is appended or echoed until the newline arrives.
	time.Sleep(50 * time.Millisecond)
	_, err = os.Stat(s.data.Path())
	assert.True(t, os.IsNotExist(err))

	sendAndReadEcho(t, conn, "packet\n", "split packet\n")
}

func TestOneWriteWithManyPackets(t *testing.T) {
	t.Parallel()
	s, _ := startServer(t, testConfig(t))
	conn := dial(t, s)

	_, err := conn.Write([]byte("a\nb\n"))
	require.NoError(t, err)

	// Echo after "a\n" is "a\n"; echo after "b\n" is "a\nb\n".
	want := "a\n" + "a\nb\n"
	got := make([]byte, len(want))
	_, err = io.ReadFull(conn, got)
	require.NoError(t, err)
	assert.Equal(t, want, string(got))
}

func TestOversizePacketClosesConnection(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.MaxPacketSize = 64
	s, _ := startServer(t, cfg)
	conn := dial(t, s)

	_, err := conn.Write(bytes.Repeat([]byte("x"), 100))
	require.NoError(t, err)

	// The server aborts the session without echoing anything.
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	require.Error(t, err)

	// Nothing was appended.
	_, err = os.Stat(s.data.Path())
	assert.True(t, os.IsNotExist(err))

	assert.Eventually(t, func() bool { return s.registry.Live() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestAppendFailureKeepsSessionAlive(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	// A directory cannot be opened for append, so every Append fails.
	cfg.DataFile = t.TempDir()
	s, _ := startServer(t, cfg)
	conn := dial(t, s)

	_, err := conn.Write([]byte("doomed packet\n"))
	require.NoError(t, err)

	// The echo is skipped but the connection stays up and keeps reading.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, s.registry.Live())

	_, err = conn.Write([]byte("still here\n"))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, s.registry.Live())
}

func TestBoundedAdmissionBackpressure(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.MaxConnections = 1
	s, _ := startServer(t, cfg)

	c1 := dial(t, s)
	sendAndReadEcho(t, c1, "holder\n", "holder\n")
	require.Equal(t, 1, s.registry.Live())

	// The second client connects (listen backlog) but is not admitted
	// while the slot is taken.
	c2 := dial(t, s)
	_, err := c2.Write([]byte("waiting\n"))
	require.NoError(t, err)

	time.Sleep(3 * admissionBackoff)
	assert.Equal(t, 1, s.registry.Live())

	// Freeing the slot lets the pending client in; its echo includes the
	// first client's packet.
	c1.Close()
	want := "holder\nwaiting\n"
	got := make([]byte, len(want))
	_, err = io.ReadFull(c2, got)
	require.NoError(t, err)
	assert.Equal(t, want, string(got))
}

func TestShutdownDrainsSessionsThenRemovesFile(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	s, served := startServer(t, cfg)

	// One completed packet so the data file exists on disk.
	first := dial(t, s)
	sendAndReadEcho(t, first, "seed\n", "seed\n")

	// Several more sessions parked mid-receive.
	const parked = 5
	conns := make([]net.Conn, 0, parked)
	for i := 0; i < parked; i++ {
		c := dial(t, s)
		_, err := c.Write([]byte("incomplete"))
		require.NoError(t, err)
		conns = append(conns, c)
	}
	require.Eventually(t, func() bool { return s.registry.Live() == parked+1 },
		2*time.Second, 10*time.Millisecond)

	s.Shutdown()
	select {
	case <-served:
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after shutdown")
	}

	// All sessions joined, then the file was removed.
	assert.Zero(t, s.registry.Live())
	_, err := os.Stat(cfg.DataFile)
	assert.True(t, os.IsNotExist(err))

	// Parked clients observe their sockets closed.
	for _, c := range conns {
		buf := make([]byte, 1)
		_, err := c.Read(buf)
		assert.Error(t, err)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	t.Parallel()
	s, served := startServer(t, testConfig(t))

	s.Shutdown()
	s.Shutdown()
	select {
	case <-served:
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return")
	}
}

func TestTimestampWorkerAppendsLines(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.TimestampInterval = 20 * time.Millisecond
	s, served := startServer(t, cfg)

	var snap bytes.Buffer
	require.Eventually(t, func() bool {
		snap.Reset()
		_, err := s.data.WriteTo(&snap)
		return err == nil && bytes.Contains(snap.Bytes(), []byte("timestamp:"))
	}, 2*time.Second, 20*time.Millisecond)

	for _, line := range bytes.Split(snap.Bytes(), []byte{'\n'}) {
		if len(line) == 0 {
			continue
		}
		assert.True(t, bytes.HasPrefix(line, []byte("timestamp:")), "line %q", line)
	}

	// The worker observes shutdown without waiting out an interval cycle.
	s.Shutdown()
	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("timestamp worker held up shutdown")
	}
}

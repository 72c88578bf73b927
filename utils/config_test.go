package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetlog/packetlogd/utils"
)

func TestParseConfig(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		yaml    string
		wantErr bool
		check   func(t *testing.T, c *utils.Config)
	}{
		"ok/ empty document falls back to defaults": {
			yaml: "",
			check: func(t *testing.T, c *utils.Config) {
				assert.Equal(t, utils.DefaultListenPort, c.ListenPort)
				assert.Equal(t, utils.DefaultDataFile, c.DataFile)
				assert.Equal(t, utils.DefaultMaxPacketSize, c.MaxPacketSize)
				assert.Equal(t, 0, c.MaxConnections)
				assert.Equal(t, time.Duration(0), c.TimestampInterval)
			},
		},
		"ok/ explicit values override defaults": {
			yaml: `
listen_host: 127.0.0.1
listen_port: "9999"
data_file: /tmp/pkt.data
max_connections: 10
timestamp_interval: 10
stop_grace_period: 2
metrics_listen: ":9100"
`,
			check: func(t *testing.T, c *utils.Config) {
				assert.Equal(t, "127.0.0.1:9999", c.ListenAddr())
				assert.Equal(t, "/tmp/pkt.data", c.DataFile)
				assert.Equal(t, 10, c.MaxConnections)
				assert.Equal(t, 10*time.Second, c.TimestampInterval)
				assert.Equal(t, 2*time.Second, c.StopGracePeriod)
				assert.Equal(t, ":9100", c.MetricsListen)
			},
		},
		"ok/ max_packet_size accepts human-readable sizes": {
			yaml: "max_packet_size: 1M\n",
			check: func(t *testing.T, c *utils.Config) {
				assert.Equal(t, 1024*1024, c.MaxPacketSize)
			},
		},
		"ng/ malformed max_packet_size": {
			yaml:    "max_packet_size: tenmegs\n",
			wantErr: true,
		},
		"ng/ zero max_packet_size": {
			yaml:    "max_packet_size: 0K\n",
			wantErr: true,
		},
		"ng/ negative max_connections": {
			yaml:    "max_connections: -1\n",
			wantErr: true,
		},
		"ng/ not yaml at all": {
			yaml:    "listen_port: [:::\n",
			wantErr: true,
		},
	}
	for name := range tests {
		tt := tests[name]
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			c, err := utils.ParseConfig([]byte(tt.yaml))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

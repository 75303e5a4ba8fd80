package statsd

import (
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" job/transition ": "job_transition",
		"foo..bar":         "foo.bar",
		"multi  space":     "multi__space",
		".leading.":        "leading",
	}
	for input, want := range tests {
		assert.Equal(t, want, normalizeMetricName(input), input)
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{"env": "prod", " service ": " sensemaker "}
	local := map[string]string{"result": " success ", "": "ignored", "env": "stage"}

	assert.Equal(t, "|#env:stage,result:success,service:sensemaker", formatTags(global, local))
	assert.Empty(t, formatTags(nil, nil))
}

func TestClient_WritesLines(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	c := &Client{
		prefix:     "sensemaker",
		conn:       clientConn,
		globalTags: map[string]string{"env": "test"},
		logger:     slog.Default(),
	}

	lines := make(chan string, 2)
	go func() {
		buf := make([]byte, 256)
		for range 2 {
			n, err := peerConn.Read(buf)
			if err != nil {
				return
			}
			lines <- string(buf[:n])
		}
	}()

	c.Count("job.transition", 1, map[string]string{"result": "success"})
	c.Timing("job.duration", 1500*time.Microsecond, nil)

	assert.Equal(t, "sensemaker.job.transition:1|c|#env:test,result:success", <-lines)
	assert.Equal(t, "sensemaker.job.duration:1.5|ms|#env:test", <-lines)
}

func TestClient_EnabledAndClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	c := &Client{conn: clientConn}
	assert.True(t, c.Enabled())
	require.NoError(t, c.Close())
	assert.False(t, c.Enabled())
	require.NoError(t, c.Close())

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
	require.NoError(t, nilClient.Close())
	nilClient.Count("ignored", 1, nil)
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Enabled: true, Address: "   "})
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	_, err = NewClient(Config{Enabled: true, Address: "bad address"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statsd dial")
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder
	tags := map[string]string{"script": "full"}
	r.Count("job.transition", 1, tags)
	r.Timing("job.duration", 2*time.Second, nil)
	tags["script"] = "mutated"

	got := r.Samples("job.transition")
	require.Len(t, got, 1)
	assert.Equal(t, "full", got[0].Tags["script"])
	assert.InDelta(t, 2000.0, r.Samples("job.duration")[0].Value, 0.001)
	assert.Empty(t, r.Samples("missing"))
}

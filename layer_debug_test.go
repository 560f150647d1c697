package httpreq

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memTransaction is a minimal in-memory wire.Transaction stand-in for
// exercising a connDecorator-based wrapper without a real socket.
type memTransaction struct {
	readData []byte
	written  bytes.Buffer
}

func (m *memTransaction) Read(p []byte) (int, error) {
	if len(m.readData) == 0 {
		return 0, io.EOF
	}
	n := copy(p, m.readData)
	m.readData = m.readData[n:]
	return n, nil
}

func (m *memTransaction) Write(p []byte) (int, error) { return m.written.Write(p) }

func TestTeeConnMirrorsReadAndWriteBytesWithoutAlteringThem(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))

	underlying := &memTransaction{readData: []byte("response-bytes")}
	tee := &teeConn{connDecorator: connDecorator{Transaction: underlying}, logger: logger}

	n, err := tee.Write([]byte("request-bytes"))
	require.NoError(t, err)
	assert.Equal(t, len("request-bytes"), n)
	assert.Equal(t, "request-bytes", underlying.written.String(), "tee must not alter written bytes")

	buf := make([]byte, 32)
	n, err = tee.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "response-bytes", string(buf[:n]), "tee must not alter read bytes")

	logged := out.String()
	assert.Contains(t, logged, "request-bytes")
	assert.Contains(t, logged, "response-bytes")
}

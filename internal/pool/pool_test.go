package pool

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeDialer(t *testing.T) (DialFunc, func()) {
	t.Helper()
	var conns []net.Conn
	dial := func(ctx context.Context, key Key) (net.Conn, error) {
		client, server := net.Pipe()
		conns = append(conns, server)
		go func() {
			buf := make([]byte, 1)
			for {
				if _, err := server.Read(buf); err != nil {
					return
				}
			}
		}()
		return client, nil
	}
	return dial, func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}
}

func testKey() Key { return Key{Scheme: "http", Host: "example.com", Port: "80"} }

func TestAcquireDialsFreshConnection(t *testing.T) {
	t.Parallel()
	dial, cleanup := pipeDialer(t)
	defer cleanup()

	p := New(Options{PerHostLimit: 4, TotalLimit: 8, MaxRequests: 100, IdleTimeout: time.Minute, Dial: dial})
	defer p.Close()

	conn, err := p.Acquire(context.Background(), testKey())
	require.NoError(t, err)
	assert.NotNil(t, conn)
	assert.Equal(t, testKey(), conn.Key())
}

func TestReleaseReusesIdleConnection(t *testing.T) {
	t.Parallel()
	dial, cleanup := pipeDialer(t)
	defer cleanup()

	p := New(Options{PerHostLimit: 4, TotalLimit: 8, MaxRequests: 100, IdleTimeout: time.Minute, Dial: dial})
	defer p.Close()

	key := testKey()
	conn, err := p.Acquire(context.Background(), key)
	require.NoError(t, err)
	firstSeq := conn.Seq()
	p.Release(conn, true)

	stats := p.Stats()
	assert.Equal(t, 1, stats.TotalIdle)

	conn2, err := p.Acquire(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, firstSeq, conn2.Seq(), "expected the idle connection to be reused, not redialed")
}

func TestReleaseWithoutKeepAliveDoesNotReuse(t *testing.T) {
	t.Parallel()
	dial, cleanup := pipeDialer(t)
	defer cleanup()

	p := New(Options{PerHostLimit: 4, TotalLimit: 8, MaxRequests: 100, IdleTimeout: time.Minute, Dial: dial})
	defer p.Close()

	key := testKey()
	conn, err := p.Acquire(context.Background(), key)
	require.NoError(t, err)
	firstSeq := conn.Seq()
	p.Release(conn, false)

	time.Sleep(10 * time.Millisecond)
	stats := p.Stats()
	assert.Equal(t, 0, stats.TotalIdle)

	conn2, err := p.Acquire(context.Background(), key)
	require.NoError(t, err)
	assert.NotEqual(t, firstSeq, conn2.Seq())
}

func TestPerHostLimitBlocksUntilRelease(t *testing.T) {
	t.Parallel()
	dial, cleanup := pipeDialer(t)
	defer cleanup()

	p := New(Options{PerHostLimit: 1, TotalLimit: 8, MaxRequests: 100, IdleTimeout: time.Minute, Dial: dial})
	defer p.Close()

	key := testKey()
	conn, err := p.Acquire(context.Background(), key)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx, key)
	assert.ErrorIs(t, err, ErrConnectTimeout)

	p.Release(conn, false)

	conn3, err := p.Acquire(context.Background(), key)
	require.NoError(t, err)
	assert.NotNil(t, conn3)
}

func TestMaxRequestsRetiresConnection(t *testing.T) {
	t.Parallel()
	dial, cleanup := pipeDialer(t)
	defer cleanup()

	p := New(Options{PerHostLimit: 4, TotalLimit: 8, MaxRequests: 2, IdleTimeout: time.Minute, Dial: dial})
	defer p.Close()

	key := testKey()
	conn, err := p.Acquire(context.Background(), key)
	require.NoError(t, err)
	conn.NoteRequestServed()
	conn.NoteRequestServed()
	p.Release(conn, true)

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 0, p.Stats().TotalIdle, "connection at its request budget should not be reused")
}

func TestCloseIdleClosesConnections(t *testing.T) {
	t.Parallel()
	dial, cleanup := pipeDialer(t)
	defer cleanup()

	p := New(Options{PerHostLimit: 4, TotalLimit: 8, MaxRequests: 100, IdleTimeout: time.Minute, Dial: dial})
	defer p.Close()

	key := testKey()
	conn, err := p.Acquire(context.Background(), key)
	require.NoError(t, err)
	p.Release(conn, true)

	p.CloseIdle()
	assert.Equal(t, 0, p.Stats().TotalIdle)
}

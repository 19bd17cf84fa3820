package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records written frames and can be told to fail.
type fakeConn struct {
	frames [][]byte
	fail   bool
	closed bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	if f.fail {
		return errors.New("write failed")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) Close() error                     { f.closed = true; return nil }

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub(10, 10)
	a, b := &fakeConn{}, &fakeConn{}
	require.NoError(t, hub.Add(a, "10.0.0.1"))
	require.NoError(t, hub.Add(b, "10.0.0.2"))

	hub.Broadcast("bike:created", map[string]any{"id": 1})

	require.Len(t, a.frames, 1)
	require.Len(t, b.frames, 1)

	var env Envelope
	require.NoError(t, json.Unmarshal(a.frames[0], &env))
	assert.Equal(t, "bike:created", env.Type)
	assert.NotEmpty(t, env.Timestamp)
}

func TestBroadcastDropsFailingClientSilently(t *testing.T) {
	hub := NewHub(10, 10)
	ok, broken := &fakeConn{}, &fakeConn{fail: true}
	require.NoError(t, hub.Add(ok, "10.0.0.1"))
	require.NoError(t, hub.Add(broken, "10.0.0.2"))

	hub.Broadcast("bike:updated", nil)

	assert.Equal(t, 1, hub.Len())
	assert.True(t, broken.closed)
	assert.Len(t, ok.frames, 1)

	// The healthy client keeps receiving.
	hub.Broadcast("bike:updated", nil)
	assert.Len(t, ok.frames, 2)
}

func TestAddEnforcesGlobalCap(t *testing.T) {
	hub := NewHub(3, 100)
	for i := 0; i < 3; i++ {
		require.NoError(t, hub.Add(&fakeConn{}, fmt.Sprintf("10.0.0.%d", i)))
	}

	err := hub.Add(&fakeConn{}, "10.0.9.9")
	assert.ErrorIs(t, err, ErrTooManyConnections)
	assert.Equal(t, 3, hub.Len(), "existing clients stay connected")
}

func TestAddEnforcesPerIPCap(t *testing.T) {
	hub := NewHub(100, 2)
	require.NoError(t, hub.Add(&fakeConn{}, "10.0.0.1"))
	require.NoError(t, hub.Add(&fakeConn{}, "10.0.0.1"))

	err := hub.Add(&fakeConn{}, "10.0.0.1")
	assert.ErrorIs(t, err, ErrTooManyPerIP)

	// Another address is unaffected.
	require.NoError(t, hub.Add(&fakeConn{}, "10.0.0.2"))
}

func TestPerIPCountsResetWholesale(t *testing.T) {
	hub := NewHub(100, 1)
	require.NoError(t, hub.Add(&fakeConn{}, "10.0.0.1"))
	require.ErrorIs(t, hub.Add(&fakeConn{}, "10.0.0.1"), ErrTooManyPerIP)

	hub.resetIPCounts()
	assert.NoError(t, hub.Add(&fakeConn{}, "10.0.0.1"))
}

func TestRemoveIsIdempotent(t *testing.T) {
	hub := NewHub(10, 10)
	conn := &fakeConn{}
	require.NoError(t, hub.Add(conn, "10.0.0.1"))

	hub.Remove(conn)
	hub.Remove(conn)
	assert.Equal(t, 0, hub.Len())
}

func TestSendToRemovesOnFailure(t *testing.T) {
	hub := NewHub(10, 10)
	conn := &fakeConn{fail: true}
	require.NoError(t, hub.Add(conn, "10.0.0.1"))

	err := hub.SendTo(conn, "connected", nil)
	assert.Error(t, err)
	assert.Equal(t, 0, hub.Len())
}

func TestPingIsBroadcast(t *testing.T) {
	hub := NewHub(10, 10)
	conn := &fakeConn{}
	require.NoError(t, hub.Add(conn, "10.0.0.1"))

	hub.Ping()
	require.Len(t, conn.frames, 1)

	var env Envelope
	require.NoError(t, json.Unmarshal(conn.frames[0], &env))
	assert.Equal(t, "ping", env.Type)
}

package handler

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velodepot/bikeshop/internal/realtime"
)

// fakeWSConn feeds a fixed sequence of inbound frames to the read loop
// and records everything written back.
type fakeWSConn struct {
	inbound [][]byte
	written [][]byte
}

func (f *fakeWSConn) ReadMessage() (int, []byte, error) {
	if len(f.inbound) == 0 {
		return 0, nil, errors.New("connection closed")
	}
	msg := f.inbound[0]
	f.inbound = f.inbound[1:]
	return 1, msg, nil
}

func (f *fakeWSConn) WriteMessage(_ int, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	f.written = append(f.written, cp)
	return nil
}

func (f *fakeWSConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeWSConn) Close() error                     { return nil }

func TestReadLoopAnswersPingRegardlessOfSerialization(t *testing.T) {
	hub := realtime.NewHub(10, 10)
	conn := &fakeWSConn{inbound: [][]byte{
		[]byte(`{"type":"ping"}`),
		[]byte(`{ "type" : "ping" }`),
		[]byte(`{"ts":123,"type":"ping"}`),
		[]byte(`ping`),
		[]byte(`{"type":"hello"}`),
		[]byte(`not json at all`),
	}}
	require.NoError(t, hub.Add(conn, "10.0.0.1"))

	h := NewWSHandler(hub)
	h.readLoop(conn)

	require.Len(t, conn.written, 4, "one pong per ping, nothing for other frames")
	for _, frame := range conn.written {
		var env realtime.Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		assert.Equal(t, "pong", env.Type)
	}
}

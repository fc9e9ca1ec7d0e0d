package driver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yingshulu/apiclient/protocol"
	"github.com/yingshulu/apiclient/transport"
)

func TestTCPCall(t *testing.T) {
	var dials int32
	d, err := New("tcp://server:8443", WithDialer(pipeDialer(personHandler, true, &dials)))
	require.NoError(t, err)
	register(t, d)
	defer d.Close()

	ctx := context.Background()
	res, err := d.Call(ctx, "FindByName", []interface{}{"ann"})
	require.NoError(t, err)
	assert.Equal(t, &Person{Name: "ann"}, res)

	res, err = d.Call(ctx, "FindAll", nil)
	require.NoError(t, err)
	assert.Equal(t, []Person{{Name: "ann"}, {Name: "bob"}}, res)

	_, err = d.Call(ctx, "Explode", nil)
	var fault *protocol.Fault
	assert.True(t, errors.As(err, &fault))

	assert.Equal(t, int32(1), atomic.LoadInt32(&dials))
}

func TestTCPConcurrentCalls(t *testing.T) {
	var dials int32
	d, err := New("tcp://server:8443", WithDialer(pipeDialer(personHandler, true, &dials)))
	require.NoError(t, err)
	register(t, d)
	defer d.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := strings.Repeat("x", i+1)
			res, err := d.Call(context.Background(), "FindByName", []interface{}{name})
			if assert.NoError(t, err) {
				assert.Equal(t, &Person{Name: name}, res)
			}
		}(i)
	}
	wg.Wait()
}

func TestTCPRedialAfterKeepaliveFailure(t *testing.T) {
	var dials int32
	d, err := New("tcp://server:8443",
		WithDialer(pipeDialer(personHandler, false, &dials)),
		WithKeepalive(20*time.Millisecond))
	require.NoError(t, err)
	register(t, d)
	defer d.Close()

	_, err = d.Call(context.Background(), "Count", nil)
	require.NoError(t, err)

	d.connLock.Lock()
	first := d.conn
	d.connLock.Unlock()
	require.Eventually(t, first.isClosed, time.Second, 5*time.Millisecond)

	res, err := d.Call(context.Background(), "Count", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res)
	assert.Equal(t, int32(2), atomic.LoadInt32(&dials))
}

func TestKeepaliveAnswered(t *testing.T) {
	var dials int32
	d, err := New("tcp://server:8443",
		WithDialer(pipeDialer(personHandler, true, &dials)),
		WithKeepalive(10*time.Millisecond))
	require.NoError(t, err)
	register(t, d)
	defer d.Close()

	_, err = d.Call(context.Background(), "Count", nil)
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)

	_, err = d.Call(context.Background(), "Count", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&dials))
}

func TestCallTimeout(t *testing.T) {
	var dials int32
	silent := func(req *protocol.Message) *protocol.Message {
		time.Sleep(200 * time.Millisecond)
		return personHandler(req)
	}
	d, err := New("tcp://server:8443",
		WithDialer(pipeDialer(silent, true, &dials)),
		WithTimeout(20*time.Millisecond))
	require.NoError(t, err)
	register(t, d)
	defer d.Close()

	_, err = d.Call(context.Background(), "Count", nil)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestWebSocketCall(t *testing.T) {
	upgrader := &websocket.Upgrader{}
	handshakes := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handshakes <- r.Header.Clone()
		header := http.Header{}
		header.Set(connIdKey, "ws-1")
		header.Set(hostIdKey, "server")
		wsc, err := upgrader.Upgrade(w, r, header)
		if err != nil {
			return
		}
		serveFrames(transport.NewWebSocket(wsc), personHandler, true)
	}))
	defer srv.Close()

	d, err := New("ws"+strings.TrimPrefix(srv.URL, "http")+"/websocket",
		WithHostID("macbook"),
		WithCredentialProvider(func() string { return "token" }))
	require.NoError(t, err)
	register(t, d)
	defer d.Close()

	res, err := d.Call(context.Background(), "FindByName", []interface{}{"ann"})
	require.NoError(t, err)
	assert.Equal(t, &Person{Name: "ann"}, res)
	h := <-handshakes
	assert.Equal(t, "macbook", h.Get(hostIdKey))
	assert.Equal(t, "token", h.Get(authKey))

	d.connLock.Lock()
	c := d.conn.(*conn)
	d.connLock.Unlock()
	assert.Equal(t, "server", c.Peer())
	assert.Equal(t, "ws-1", c.ID())
}

func TestConnClosedByPeer(t *testing.T) {
	var dials int32
	closing := func(req *protocol.Message) *protocol.Message {
		return &protocol.Message{Type: protocol.CloseType, Error: "shutting down"}
	}
	d, err := New("tcp://server:8443", WithDialer(pipeDialer(closing, true, &dials)))
	require.NoError(t, err)
	register(t, d)
	defer d.Close()

	_, err = d.Call(context.Background(), "Count", nil)
	var fault *protocol.Fault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, "shutting down", fault.Reason)
}

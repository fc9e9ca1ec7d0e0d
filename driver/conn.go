package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/yingshulu/apiclient/protocol"
	"github.com/yingshulu/apiclient/transport"
)

func newConn(t transport.Transport, peer string, id string, keepalive time.Duration) *conn {
	c := &conn{
		t:             t,
		peer:          peer,
		id:            id,
		sendingFrames: make(chan *transport.Frame),
		closeNotify:   make(chan struct{}),
	}

	c.log = log.WithFields(log.Fields{
		"Name": "Connection",
		"ID":   c.id,
		"Peer": c.peer,
	})

	go c.readLoop()
	go c.writeFrameTask()
	if keepalive > 0 {
		go c.keepaliveLoop(keepalive)
	}
	return c
}

// conn multiplexes calls over one framed transport, matching replies to
// callers by message id.
type conn struct {
	t             transport.Transport
	peer          string
	id            string
	chanMap       sync.Map
	sendingFrames chan *transport.Frame
	messageID     uint32
	closeNotify   chan struct{}
	closeOnce     sync.Once
	closed        int32
	cause         error
	log           *log.Entry
}

func (co *conn) Peer() string {
	return co.peer
}

func (co *conn) ID() string {
	return co.id
}

func (co *conn) isClosed() bool {
	return atomic.LoadInt32(&co.closed) == 1
}

func (co *conn) nextMessageID() uint32 {
	return atomic.AddUint32(&co.messageID, 1)
}

func (co *conn) exchange(ctx context.Context, m *protocol.Message) (*protocol.Message, error) {
	m.ID = co.nextMessageID()
	payload, err := m.Encode()
	if err != nil {
		return nil, err
	}

	ch := make(chan *protocol.Message, 1)
	co.chanMap.Store(m.ID, ch)
	defer co.chanMap.Delete(m.ID)

	select {
	case co.sendingFrames <- transport.NewRpcFrame(payload):
	case <-ctx.Done():
		return nil, fmt.Errorf("context done: %w", ctx.Err())
	case <-co.closeNotify:
		return nil, co.closedError()
	}

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context done: %w", ctx.Err())
	case <-co.closeNotify:
		return nil, co.closedError()
	case reply := <-ch:
		return reply, nil
	}
}

func (co *conn) readLoop() {
	for {
		fm, err := co.t.Read()
		if err != nil {
			co.closeWith(err)
			return
		}
		if !fm.IsRpc() {
			continue
		}

		msg := &protocol.Message{}
		if err = msg.Decode(fm.Payload); err != nil {
			co.log.Warnf("decode message: %v", err)
			co.closeWith(err)
			return
		}

		switch msg.Type {
		case protocol.ReplyType, protocol.ErrorType, protocol.PongType:
			if v, ok := co.chanMap.Load(msg.ID); ok {
				select {
				case v.(chan *protocol.Message) <- msg:
				default:
				}
			}
		case protocol.PingType:
			co.reply(&protocol.Message{Type: protocol.PongType, ID: msg.ID})
		case protocol.RequestType:
			co.reply(&protocol.Message{
				Type:    protocol.ErrorType,
				ID:      msg.ID,
				Service: msg.Service,
				Error:   "client does not serve requests",
			})
		case protocol.CloseType:
			co.log.Infof("closed by peer: %s", msg.Error)
			co.closeWith(msg.Err())
			return
		}
	}
}

func (co *conn) reply(m *protocol.Message) {
	payload, err := m.Encode()
	if err != nil {
		return
	}
	go func() {
		select {
		case co.sendingFrames <- transport.NewRpcFrame(payload):
		case <-co.closeNotify:
		}
	}()
}

func (co *conn) writeFrameTask() {
	for {
		select {
		case frame := <-co.sendingFrames:
			if err := co.t.Write(frame); err != nil {
				co.closeWith(err)
				return
			}
		case <-co.closeNotify:
			return
		}
	}
}

func (co *conn) keepaliveLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			_, err := co.exchange(ctx, &protocol.Message{Type: protocol.PingType})
			cancel()
			if err != nil {
				co.log.Warnf("keepalive failed: %v", err)
				co.closeWith(fmt.Errorf("keepalive: %w", err))
				return
			}
		case <-co.closeNotify:
			return
		}
	}
}

func (co *conn) closedError() error {
	return fmt.Errorf("connection %s closed: %w", co.peer, co.cause)
}

func (co *conn) closeWith(cause error) {
	co.closeOnce.Do(func() {
		if cause == nil {
			cause = ErrClosed
		}
		co.cause = cause
		atomic.StoreInt32(&co.closed, 1)
		close(co.closeNotify)
		_ = co.t.Close()

		if errors.Is(cause, ErrClosed) {
			co.log.Debug("connection closed")
		} else {
			co.log.Infof("connection closed: %v", cause)
		}
	})
}

func (co *conn) Close() error {
	co.closeWith(ErrClosed)
	return nil
}

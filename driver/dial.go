package driver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yingshulu/apiclient/transport"
)

const (
	connIdKey    = "X-CONNECTION-ID"
	hostIdKey    = "X-HOST-ID"
	authKey      = "X-AUTH-TOKEN"
	namespaceKey = "X-NAMESPACE"
)

func (d *Driver) dial(ctx context.Context) (exchanger, error) {
	switch d.endpoint.Scheme {
	case "tcp":
		return d.dialConnect(ctx)
	case "ws", "wss":
		return d.wsConnect(ctx)
	}
	return nil, ErrUnsupportedEndpoint
}

func (d *Driver) handshakeHeader() http.Header {
	header := d.options.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set(hostIdKey, d.options.HostID)
	if d.options.Namespace != "" {
		header.Set(namespaceKey, d.options.Namespace)
	}
	if d.options.CredentialProvider != nil {
		header.Set(authKey, d.options.CredentialProvider())
	}
	return header
}

func (d *Driver) wsConnect(ctx context.Context) (exchanger, error) {
	wsc, resp, err := websocket.DefaultDialer.DialContext(ctx, d.endpoint.String(), d.handshakeHeader())
	if err != nil {
		return nil, err
	}

	id := resp.Header.Get(connIdKey)
	peer := resp.Header.Get(hostIdKey)
	d.log.WithField("Peer", peer).Debug("websocket connected")
	return newConn(transport.NewWebSocket(wsc), peer, id, d.options.KeepaliveInterval), nil
}

func (d *Driver) dialConnect(ctx context.Context) (exchanger, error) {
	tc, err := d.options.Dialer(ctx, "tcp", d.endpoint.Host)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = tc.SetDeadline(deadline)
	}
	hello := &transport.Hello{
		Host:      d.options.HostID,
		Namespace: d.options.Namespace,
	}
	if d.options.CredentialProvider != nil {
		hello.Secret = d.options.CredentialProvider()
	}
	peer, id, err := transport.ClientNegotiate(tc, hello)
	if err != nil {
		d.log.Infof("client negotiate error: %s", err)
		tc.Close()
		return nil, err
	}
	_ = tc.SetDeadline(time.Time{})

	d.log.WithField("Peer", peer).Debug("tcp connected")
	return newConn(transport.New(tc), peer, id, d.options.KeepaliveInterval), nil
}

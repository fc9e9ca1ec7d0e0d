package driver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/yingshulu/apiclient/protocol"
	"github.com/yingshulu/apiclient/transport"
)

const (
	ContentType  = "application/x-apiclient"
	actionKey    = "X-RPC-ACTION"
	requestIdKey = "X-REQUEST-ID"

	maxErrorBody = 512
)

func newHTTPExchanger(url string, options *Options) *httpExchanger {
	return &httpExchanger{url: url, options: options}
}

// httpExchanger posts one message per call and reads the reply from the body.
type httpExchanger struct {
	url     string
	options *Options
}

func (h *httpExchanger) exchange(ctx context.Context, m *protocol.Message) (*protocol.Message, error) {
	payload, err := m.Encode()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	for k, vs := range h.options.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", ContentType)
	req.Header.Set(actionKey, m.Action)
	req.Header.Set(requestIdKey, uuid.NewString())
	req.Header.Set(hostIdKey, h.options.HostID)
	if h.options.Namespace != "" {
		req.Header.Set(namespaceKey, h.options.Namespace)
	}
	if h.options.CredentialProvider != nil {
		req.Header.Set(authKey, h.options.CredentialProvider())
	}

	resp, err := h.options.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, transport.MaxPayloadLength))
	if err != nil {
		return nil, err
	}

	reply := &protocol.Message{}
	decodeErr := reply.Decode(body)
	if decodeErr == nil && reply.Type == protocol.ErrorType {
		return reply, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("driver: decode reply: %w", decodeErr)
	}
	if reply.Type != protocol.ReplyType {
		return nil, fmt.Errorf("driver: unexpected reply type %d", reply.Type)
	}
	return reply, nil
}

func (h *httpExchanger) isClosed() bool {
	return false
}

func (h *httpExchanger) Close() error {
	h.options.HTTPClient.CloseIdleConnections()
	return nil
}

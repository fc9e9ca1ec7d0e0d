package driver

import (
	"context"
	"net"
	"net/http"
	"time"
)

type Option = func(*Options)

type CredentialProvider = func() string

type Dialer = func(ctx context.Context, network, addr string) (net.Conn, error)

// WithCredentialProvider set credential provider sent with every connection or request
func WithCredentialProvider(f CredentialProvider) Option {
	return func(op *Options) {
		op.CredentialProvider = f
	}
}

// WithTimeout bounds each call. Zero disables the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(op *Options) {
		op.Timeout = d
	}
}

func WithSerialization(e string) Option {
	return func(op *Options) {
		op.SerializationType = e
	}
}

func WithHostID(id string) Option {
	return func(op *Options) {
		op.HostID = id
	}
}

// WithNamespace sets the service namespace announced when a connection is negotiated.
func WithNamespace(ns string) Option {
	return func(op *Options) {
		op.Namespace = ns
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(op *Options) {
		op.HTTPClient = c
	}
}

// WithHeader adds a header to every HTTP request and websocket handshake.
func WithHeader(key, value string) Option {
	return func(op *Options) {
		op.Header.Add(key, value)
	}
}

func WithDialer(d Dialer) Option {
	return func(op *Options) {
		op.Dialer = d
	}
}

// WithKeepalive pings framed connections every d and drops them when a ping fails.
func WithKeepalive(d time.Duration) Option {
	return func(op *Options) {
		op.KeepaliveInterval = d
	}
}

type Options struct {
	Timeout            time.Duration
	SerializationType  string
	CredentialProvider CredentialProvider
	HostID             string
	Namespace          string
	HTTPClient         *http.Client
	Header             http.Header
	Dialer             Dialer
	KeepaliveInterval  time.Duration
}

func (op *Options) Apply(options []Option) {
	for _, f := range options {
		f(op)
	}
}

func defaultOptions() *Options {
	return &Options{
		Timeout:           30 * time.Second,
		SerializationType: "json",
		HTTPClient:        http.DefaultClient,
		Header:            http.Header{},
		Dialer:            (&net.Dialer{}).DialContext,
	}
}

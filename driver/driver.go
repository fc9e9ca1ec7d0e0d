// Package driver performs calls for bound operations: it encodes the
// arguments of a registered binding, exchanges one message with the
// endpoint and decodes the result.
package driver

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/yingshulu/apiclient/binding"
	"github.com/yingshulu/apiclient/codec"
	"github.com/yingshulu/apiclient/mapping"
	"github.com/yingshulu/apiclient/protocol"
)

var typeOfAny = reflect.TypeOf((*interface{})(nil)).Elem()

type exchanger interface {
	exchange(ctx context.Context, m *protocol.Message) (*protocol.Message, error)
	isClosed() bool
	Close() error
}

type registration struct {
	binding *binding.Binding
	ins     []binding.Param
	retval  *binding.Param
}

// New prepares a driver for endpoint. The scheme selects the exchange:
// http and https post each call, ws, wss and tcp multiplex calls over one
// framed connection dialled on first use.
func New(endpoint string, options ...Option) (*Driver, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}

	d := &Driver{
		endpoint:      u,
		options:       defaultOptions(),
		registrations: map[string]*registration{},
		qnames:        map[mapping.QName]string{},
		actions:       map[string]string{},
	}
	d.options.Apply(options)
	if d.options.HostID == "" {
		d.options.HostID = uuid.NewString()
	}
	if d.codec, err = codec.ParseType(d.options.SerializationType); err != nil {
		return nil, err
	}
	if !d.codec.Legal() {
		return nil, fmt.Errorf("%w: %s", codec.ErrNotRegistered, d.options.SerializationType)
	}

	d.log = log.WithFields(log.Fields{
		"Name":     "Driver",
		"Endpoint": u.Redacted(),
		"Host":     d.options.HostID,
	})

	switch u.Scheme {
	case "http", "https":
		d.conn = newHTTPExchanger(u.String(), d.options)
	case "ws", "wss", "tcp":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEndpoint, endpoint)
	}
	return d, nil
}

type Driver struct {
	endpoint *url.URL
	options  *Options
	codec    codec.Type
	log      *log.Entry

	lock          sync.RWMutex
	registrations map[string]*registration
	qnames        map[mapping.QName]string
	actions       map[string]string

	connLock sync.Mutex
	conn     exchanger
	closed   bool
}

func (d *Driver) Options() *Options {
	return d.options
}

// Register teaches the driver how to call b.
func (d *Driver) Register(b *binding.Binding) error {
	d.lock.Lock()
	defer d.lock.Unlock()

	if _, ok := d.registrations[b.Name()]; ok {
		return fmt.Errorf("%w: operation %s", ErrDuplicateRegistration, b.Name())
	}
	if prev, ok := d.qnames[b.QName()]; ok {
		return fmt.Errorf("%w: %s already registered by %s", ErrDuplicateRegistration, b.QName(), prev)
	}
	if prev, ok := d.actions[b.Action()]; ok {
		return fmt.Errorf("%w: action %s already registered by %s", ErrDuplicateRegistration, b.Action(), prev)
	}

	r := &registration{binding: b, ins: b.Ins()}
	if rv, ok := b.RetVal(); ok {
		r.retval = &rv
	}
	d.registrations[b.Name()] = r
	d.qnames[b.QName()] = b.Name()
	d.actions[b.Action()] = b.Name()

	d.log.WithFields(log.Fields{
		"Operation": b.Name(),
		"QName":     b.QName().String(),
		"Action":    b.Action(),
	}).Debug("binding registered")
	return nil
}

func (d *Driver) Registered(name string) bool {
	_, ok := d.registration(name)
	return ok
}

func (d *Driver) registration(name string) (*registration, bool) {
	d.lock.RLock()
	defer d.lock.RUnlock()
	r, ok := d.registrations[name]
	return r, ok
}

// Call invokes the registered operation name with positional args and
// returns the decoded retval, or nil when the operation returns nothing.
func (d *Driver) Call(ctx context.Context, name string, args []interface{}) (interface{}, error) {
	r, ok := d.registration(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}

	req, err := d.newRequest(r, args)
	if err != nil {
		return nil, err
	}

	if d.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.options.Timeout)
		defer cancel()
	}

	ex, err := d.exchanger(ctx)
	if err != nil {
		return nil, err
	}
	reply, err := ex.exchange(ctx, req)
	if err != nil {
		return nil, err
	}
	if err = reply.Err(); err != nil {
		return nil, err
	}
	return d.decodeResult(r, reply)
}

func (d *Driver) newRequest(r *registration, args []interface{}) (*protocol.Message, error) {
	b := r.binding
	if len(args) != len(r.ins) {
		return nil, &ArgumentError{
			Operation: b.Name(),
			Index:     -1,
			Reason:    fmt.Sprintf("want %d arguments, got %d", len(r.ins), len(args)),
		}
	}

	serialization := d.codec.String()
	m := &protocol.Message{
		Type:    protocol.RequestType,
		Codec:   d.codec,
		Service: b.QName().String(),
		Action:  b.Action(),
		Parts:   make([]protocol.Part, len(args)),
	}
	for i, p := range r.ins {
		arg := args[i]
		if arg != nil && p.Mapping.Type != nil {
			if at := reflect.TypeOf(arg); !at.AssignableTo(p.Mapping.Type) {
				return nil, &ArgumentError{
					Operation: b.Name(),
					Index:     i,
					Reason:    fmt.Sprintf("%s is %v, want %v", p.Name, at, p.Mapping.Type),
				}
			}
		}
		data, err := codec.Marshal(serialization, arg)
		if err != nil {
			return nil, &ArgumentError{Operation: b.Name(), Index: i, Reason: err.Error()}
		}
		m.Parts[i] = protocol.Part{Name: p.Name, Type: p.Mapping.QName.String(), Data: data}
	}
	return m, nil
}

func (d *Driver) decodeResult(r *registration, reply *protocol.Message) (interface{}, error) {
	if r.retval == nil {
		return nil, nil
	}
	t := r.retval.Mapping.Type
	if t == nil {
		t = typeOfAny
	}
	if len(reply.Data) == 0 {
		return reflect.Zero(t).Interface(), nil
	}

	serialization := d.codec.String()
	if reply.Codec.Legal() {
		serialization = reply.Codec.String()
	}

	// pointer results are allocated through their element
	ptr := t.Kind() == reflect.Ptr
	if ptr {
		t = t.Elem()
	}
	v := reflect.New(t)
	if err := codec.Unmarshal(serialization, reply.Data, v.Interface()); err != nil {
		return nil, fmt.Errorf("driver: decode %s result: %w", r.binding.Name(), err)
	}
	if ptr {
		return v.Interface(), nil
	}
	return v.Elem().Interface(), nil
}

func (d *Driver) exchanger(ctx context.Context) (exchanger, error) {
	d.connLock.Lock()
	defer d.connLock.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if d.conn != nil && !d.conn.isClosed() {
		return d.conn, nil
	}

	ex, err := d.dial(ctx)
	if err != nil {
		return nil, err
	}
	d.conn = ex
	return ex, nil
}

// Close releases the connection. Calls made afterwards fail with ErrClosed.
func (d *Driver) Close() error {
	d.connLock.Lock()
	defer d.connLock.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}

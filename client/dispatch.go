package client

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/yingshulu/apiclient/binding"
)

var ErrUnboundOperation = errors.New("client: unbound operation")

type UnboundOperationError struct {
	Name string
}

func (e *UnboundOperationError) Error() string {
	return fmt.Sprintf("client: operation %s is not bound", e.Name)
}

func (e *UnboundOperationError) Is(target error) bool {
	return target == ErrUnboundOperation
}

// ResultTypeError is returned by Call when the decoded result is not an R.
type ResultTypeError struct {
	Operation string
	Got       reflect.Type
	Want      reflect.Type
}

func (e *ResultTypeError) Error() string {
	return fmt.Sprintf("client: %s returned %v, want %v", e.Operation, e.Got, e.Want)
}

// Operation is the call surface of one bound operation.
type Operation func(ctx context.Context, args ...interface{}) (interface{}, error)

type dispatcher struct {
	table  *binding.Table
	driver Driver
}

// Invoke calls the operation bound as name with positional args. Failures
// from the driver are returned as they are.
func (d *dispatcher) Invoke(ctx context.Context, name string, args ...interface{}) (interface{}, error) {
	b, ok := d.table.Lookup(name)
	if !ok {
		return nil, &UnboundOperationError{Name: name}
	}
	return d.driver.Call(ctx, b.Name(), args)
}

// Operation returns the call surface for name.
func (d *dispatcher) Operation(name string) (Operation, error) {
	if _, ok := d.table.Lookup(name); !ok {
		return nil, &UnboundOperationError{Name: name}
	}
	return func(ctx context.Context, args ...interface{}) (interface{}, error) {
		return d.Invoke(ctx, name, args...)
	}, nil
}

// Call invokes name on c and asserts the result to R. An operation that
// returns nothing yields the zero R.
func Call[R any](ctx context.Context, c *Client, name string, args ...interface{}) (R, error) {
	var zero R
	res, err := c.Invoke(ctx, name, args...)
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	r, ok := res.(R)
	if !ok {
		return zero, &ResultTypeError{
			Operation: name,
			Got:       reflect.TypeOf(res),
			Want:      reflect.TypeOf((*R)(nil)).Elem(),
		}
	}
	return r, nil
}

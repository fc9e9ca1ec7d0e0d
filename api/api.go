// Package api describes the operations a remote service exposes. A
// description is built once and handed to the binding builder; it is not
// modified afterwards.
package api

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/iancoleman/strcase"
)

var (
	ErrDuplicateOperation = errors.New("api: duplicate operation")
	ErrInvalidOperation   = errors.New("api: invalid operation")
)

// TypeOf returns the reflect.Type of T without needing a value of it.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Param is one expected parameter. An empty Name makes it positional.
type Param struct {
	Name string
	Type reflect.Type
}

// Arg declares a positional parameter of type t.
func Arg(t reflect.Type) Param {
	return Param{Type: t}
}

// NamedArg declares a parameter with an explicit name.
func NamedArg(name string, t reflect.Type) Param {
	return Param{Name: name, Type: t}
}

// Operation is one remotely callable procedure.
type Operation struct {
	Name    string
	Expects []Param
	Returns reflect.Type
}

type MethodOption = func(*Operation)

func Expects(params ...Param) MethodOption {
	return func(op *Operation) {
		op.Expects = append(op.Expects, params...)
	}
}

func Returns(t reflect.Type) MethodOption {
	return func(op *Operation) {
		op.Returns = t
	}
}

type Option = func(*API)

// WithNameTransform sets how internal names become public names.
func WithNameTransform(f func(string) string) Option {
	return func(a *API) {
		a.transform = f
	}
}

// WithInflectNames is WithNameTransform(Camelize).
func WithInflectNames() Option {
	return WithNameTransform(Camelize)
}

func New(name string, options ...Option) *API {
	a := &API{
		name:  name,
		index: map[string]int{},
	}
	for _, f := range options {
		f(a)
	}
	return a
}

type API struct {
	name       string
	operations []*Operation
	index      map[string]int
	transform  func(string) string
}

func (a *API) Name() string {
	return a.name
}

// AddMethod declares the operation name. Names must be unique and every
// declared type must be non-nil.
func (a *API) AddMethod(name string, options ...MethodOption) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidOperation)
	}
	if _, ok := a.index[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateOperation, name)
	}

	op := &Operation{Name: name}
	for _, f := range options {
		f(op)
	}
	for i, p := range op.Expects {
		if p.Type == nil {
			return fmt.Errorf("%w: %s parameter %d has no type", ErrInvalidOperation, name, i+1)
		}
	}

	a.index[name] = len(a.operations)
	a.operations = append(a.operations, op)
	return nil
}

// Method is AddMethod for static descriptions; it panics on error.
func (a *API) Method(name string, options ...MethodOption) *API {
	if err := a.AddMethod(name, options...); err != nil {
		panic(err)
	}
	return a
}

// Operations returns a copy of the operations in declaration order.
func (a *API) Operations() []*Operation {
	ops := make([]*Operation, len(a.operations))
	for i, op := range a.operations {
		c := *op
		c.Expects = append([]Param(nil), op.Expects...)
		ops[i] = &c
	}
	return ops
}

func (a *API) Operation(name string) (*Operation, bool) {
	i, ok := a.index[name]
	if !ok {
		return nil, false
	}
	return a.operations[i], true
}

// NameTransform returns the transform in effect, identity when none was set.
func (a *API) NameTransform() func(string) string {
	if a.transform == nil {
		return Identity
	}
	return a.transform
}

func (a *API) PublicName(name string) string {
	return a.NameTransform()(name)
}

func Identity(name string) string {
	return name
}

// Camelize turns find_all_people into FindAllPeople.
func Camelize(name string) string {
	return strcase.ToCamel(name)
}

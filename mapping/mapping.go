// Package mapping resolves Go types to the protocol-level descriptors used
// in method bindings.
package mapping

import (
	"errors"
	"fmt"
	"reflect"
)

const (
	XSDNamespace   = "http://www.w3.org/2001/XMLSchema"
	ProtoNamespace = "type.googleapis.com"
)

var ErrUnresolvableType = errors.New("mapping: unresolvable type")

type UnresolvableTypeError struct {
	Type   reflect.Type
	Reason string
}

func (e *UnresolvableTypeError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("mapping: no mapping for type %v", e.Type)
	}
	return fmt.Sprintf("mapping: no mapping for type %v: %s", e.Type, e.Reason)
}

func (e *UnresolvableTypeError) Is(target error) bool {
	return target == ErrUnresolvableType
}

// QName is a namespace qualified name.
type QName struct {
	Namespace string
	Local     string
}

func (q QName) String() string {
	if q.Namespace == "" {
		return q.Local
	}
	return "{" + q.Namespace + "}" + q.Local
}

type Kind int

const (
	Scalar Kind = iota + 1
	Struct
	Array
	Proto
	Binary
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Struct:
		return "struct"
	case Array:
		return "array"
	case Proto:
		return "proto"
	case Binary:
		return "binary"
	}
	return "unknown"
}

// Mapping describes how one Go type is represented on the wire.
type Mapping struct {
	QName QName
	Type  reflect.Type
	Kind  Kind
	// Elem is set for Array mappings.
	Elem *Mapping
}

// Lookup is consulted once per declared parameter and return type.
type Lookup interface {
	Lookup(t reflect.Type) (*Mapping, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(t reflect.Type) (*Mapping, error)

func (f LookupFunc) Lookup(t reflect.Type) (*Mapping, error) {
	return f(t)
}

// Package binding turns operation definitions into protocol-ready method
// bindings and installs them into a transport driver.
package binding

import (
	"github.com/yingshulu/apiclient/mapping"
)

type Direction string

const (
	In     Direction = "in"
	RetVal Direction = "retval"

	// ReturnName names the retval entry of every binding.
	ReturnName = "return"
)

// Param is one (direction, name, mapping) entry of a binding.
type Param struct {
	Direction Direction
	Name      string
	Mapping   *mapping.Mapping
}

// Binding is built once per operation and never modified. Ins come first in
// declaration order, followed by at most one RetVal entry.
type Binding struct {
	name       string
	publicName string
	qname      mapping.QName
	action     string
	params     []Param
}

// Name is the internal operation name calls are dispatched by.
func (b *Binding) Name() string {
	return b.name
}

func (b *Binding) PublicName() string {
	return b.publicName
}

func (b *Binding) QName() mapping.QName {
	return b.qname
}

// Action is the per-call action identifier, e.g. a transport header value.
func (b *Binding) Action() string {
	return b.action
}

func (b *Binding) Params() []Param {
	return append([]Param(nil), b.params...)
}

func (b *Binding) Ins() []Param {
	ins := make([]Param, 0, len(b.params))
	for _, p := range b.params {
		if p.Direction == In {
			ins = append(ins, p)
		}
	}
	return ins
}

func (b *Binding) RetVal() (Param, bool) {
	if n := len(b.params); n > 0 && b.params[n-1].Direction == RetVal {
		return b.params[n-1], true
	}
	return Param{}, false
}

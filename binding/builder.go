package binding

import (
	"fmt"
	"strconv"

	"github.com/yingshulu/apiclient/api"
	"github.com/yingshulu/apiclient/mapping"
)

// Registrar is the transport side of the binding: it learns how to encode
// and decode each bound operation before any call is made.
type Registrar interface {
	Register(b *Binding) error
}

type BuilderOption = func(*Builder)

// WithNameTransform sets the internal-to-public name transform. The default
// is identity.
func WithNameTransform(f func(string) string) BuilderOption {
	return func(b *Builder) {
		if f != nil {
			b.transform = f
		}
	}
}

func NewBuilder(namespace, actionBase string, lookup mapping.Lookup, options ...BuilderOption) *Builder {
	b := &Builder{
		namespace:  namespace,
		actionBase: actionBase,
		lookup:     lookup,
		transform:  api.Identity,
	}
	for _, f := range options {
		f(b)
	}
	return b
}

type Builder struct {
	namespace  string
	actionBase string
	lookup     mapping.Lookup
	transform  func(string) string
}

// Build derives one binding per operation, in order. Either every operation
// is bound or an error is returned and no table is produced.
func (b *Builder) Build(ops []*api.Operation) (*Table, error) {
	t := newTable(len(ops))
	for _, op := range ops {
		bd, err := b.bind(op)
		if err != nil {
			return nil, err
		}
		if err = t.add(bd); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (b *Builder) bind(op *api.Operation) (*Binding, error) {
	if op.Name == "" {
		return nil, &ConfigurationError{Reason: "empty operation name"}
	}
	public := b.transform(op.Name)
	if public == "" {
		return nil, &ConfigurationError{Operation: op.Name, Reason: "empty public name"}
	}

	bd := &Binding{
		name:       op.Name,
		publicName: public,
		qname:      mapping.QName{Namespace: b.namespace, Local: public},
		action:     b.actionBase + "/" + public,
		params:     make([]Param, 0, len(op.Expects)+1),
	}

	// only unnamed entries take a positional slot
	position := 0
	seen := make(map[string]bool, len(op.Expects))
	for _, p := range op.Expects {
		name := p.Name
		if name == "" {
			position++
			name = "param" + strconv.Itoa(position)
		}
		if seen[name] {
			return nil, &ConfigurationError{Operation: op.Name, Reason: "duplicate parameter name " + name}
		}
		seen[name] = true
		m, err := b.lookup.Lookup(p.Type)
		if err != nil {
			return nil, fmt.Errorf("binding: operation %s parameter %s: %w", op.Name, name, err)
		}
		bd.params = append(bd.params, Param{Direction: In, Name: name, Mapping: m})
	}

	if op.Returns != nil {
		m, err := b.lookup.Lookup(op.Returns)
		if err != nil {
			return nil, fmt.Errorf("binding: operation %s return: %w", op.Name, err)
		}
		bd.params = append(bd.params, Param{Direction: RetVal, Name: ReturnName, Mapping: m})
	}
	return bd, nil
}

// Install registers every binding of t with r in declaration order.
func Install(t *Table, r Registrar) error {
	for _, bd := range t.bindings {
		if err := r.Register(bd); err != nil {
			return fmt.Errorf("binding: register %s: %w", bd.name, err)
		}
	}
	return nil
}

package binding

import "github.com/yingshulu/apiclient/mapping"

func newTable(size int) *Table {
	return &Table{
		bindings: make([]*Binding, 0, size),
		byName:   make(map[string]*Binding, size),
		byQName:  make(map[mapping.QName]*Binding, size),
		byAction: make(map[string]*Binding, size),
	}
}

// Table is the read-only set of bindings built for one client. It is safe
// for concurrent readers.
type Table struct {
	bindings []*Binding
	byName   map[string]*Binding
	byQName  map[mapping.QName]*Binding
	byAction map[string]*Binding
}

func (t *Table) add(b *Binding) error {
	if prev, ok := t.byName[b.name]; ok {
		return &ConfigurationError{Operation: b.name, Conflict: prev.name, Reason: "duplicate operation name"}
	}
	if prev, ok := t.byQName[b.qname]; ok {
		return &ConfigurationError{Operation: b.name, Conflict: prev.name, Reason: "duplicate public name " + b.publicName}
	}
	if prev, ok := t.byAction[b.action]; ok {
		return &ConfigurationError{Operation: b.name, Conflict: prev.name, Reason: "duplicate action " + b.action}
	}
	t.bindings = append(t.bindings, b)
	t.byName[b.name] = b
	t.byQName[b.qname] = b
	t.byAction[b.action] = b
	return nil
}

// Lookup finds a binding by internal operation name.
func (t *Table) Lookup(name string) (*Binding, bool) {
	b, ok := t.byName[name]
	return b, ok
}

func (t *Table) ByQName(q mapping.QName) (*Binding, bool) {
	b, ok := t.byQName[q]
	return b, ok
}

func (t *Table) ByAction(action string) (*Binding, bool) {
	b, ok := t.byAction[action]
	return b, ok
}

// Bindings returns the bindings in declaration order.
func (t *Table) Bindings() []*Binding {
	return append([]*Binding(nil), t.bindings...)
}

func (t *Table) Len() int {
	return len(t.bindings)
}

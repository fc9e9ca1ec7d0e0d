package mapping

import (
	"reflect"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"google.golang.org/protobuf/proto"
)

const defaultCacheSize = 512

var (
	typeOfTime         = reflect.TypeOf(time.Time{})
	typeOfBytes        = reflect.TypeOf([]byte(nil))
	typeOfProtoMessage = reflect.TypeOf((*proto.Message)(nil)).Elem()
)

var scalarNames = map[reflect.Kind]string{
	reflect.String:  "string",
	reflect.Bool:    "boolean",
	reflect.Int:     "long",
	reflect.Int8:    "byte",
	reflect.Int16:   "short",
	reflect.Int32:   "int",
	reflect.Int64:   "long",
	reflect.Uint:    "unsignedLong",
	reflect.Uint8:   "unsignedByte",
	reflect.Uint16:  "unsignedShort",
	reflect.Uint32:  "unsignedInt",
	reflect.Uint64:  "unsignedLong",
	reflect.Float32: "float",
	reflect.Float64: "double",
}

// NewRegistry returns the default Lookup. Named struct types are placed in
// namespace.
func NewRegistry(namespace string) *Registry {
	cache, _ := lru.New(defaultCacheSize)
	return &Registry{
		namespace: namespace,
		custom:    map[reflect.Type]QName{},
		cache:     cache,
	}
}

// Registry maps builtin scalars, byte slices, slices, named structs and
// protobuf messages. Results are cached and the registry is safe for
// concurrent use.
type Registry struct {
	namespace string
	lock      sync.RWMutex
	custom    map[reflect.Type]QName
	cache     *lru.Cache
}

func (r *Registry) Namespace() string {
	return r.namespace
}

// Register overrides the qualified name used for t.
func (r *Registry) Register(t reflect.Type, name QName) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.custom[t] = name
	r.cache.Purge()
}

func (r *Registry) Lookup(t reflect.Type) (*Mapping, error) {
	return r.lookup(t, map[reflect.Type]bool{})
}

// lookup resolves t; resolving holds the types on the current path, so a
// type reached again through its own element is reported instead of followed.
func (r *Registry) lookup(t reflect.Type, resolving map[reflect.Type]bool) (*Mapping, error) {
	if t == nil {
		return nil, &UnresolvableTypeError{Reason: "nil type"}
	}
	if v, ok := r.cache.Get(t); ok {
		return v.(*Mapping), nil
	}
	if resolving[t] {
		return nil, &UnresolvableTypeError{Type: t, Reason: "recursive type"}
	}
	resolving[t] = true
	defer delete(resolving, t)

	m, err := r.resolve(t, resolving)
	if err != nil {
		return nil, err
	}
	r.cache.Add(t, m)
	return m, nil
}

func (r *Registry) resolve(t reflect.Type, resolving map[reflect.Type]bool) (*Mapping, error) {
	r.lock.RLock()
	name, ok := r.custom[t]
	r.lock.RUnlock()
	if ok {
		return &Mapping{QName: name, Type: t, Kind: kindOf(t)}, nil
	}

	if t.Implements(typeOfProtoMessage) {
		return r.resolveProto(t)
	}

	switch {
	case t == typeOfTime:
		return &Mapping{QName: QName{XSDNamespace, "dateTime"}, Type: t, Kind: Scalar}, nil
	case t == typeOfBytes:
		return &Mapping{QName: QName{XSDNamespace, "base64Binary"}, Type: t, Kind: Binary}, nil
	}

	switch t.Kind() {
	case reflect.Ptr:
		m, err := r.lookup(t.Elem(), resolving)
		if err != nil {
			return nil, err
		}
		c := *m
		c.Type = t
		return &c, nil

	case reflect.Slice, reflect.Array:
		elem, err := r.lookup(t.Elem(), resolving)
		if err != nil {
			return nil, err
		}
		return &Mapping{
			QName: QName{r.namespace, "ArrayOf" + elem.QName.Local},
			Type:  t,
			Kind:  Array,
			Elem:  elem,
		}, nil

	case reflect.Struct:
		if t.Name() == "" {
			return nil, &UnresolvableTypeError{Type: t, Reason: "anonymous struct"}
		}
		return &Mapping{QName: QName{r.namespace, t.Name()}, Type: t, Kind: Struct}, nil
	}

	if local, ok := scalarNames[t.Kind()]; ok {
		return &Mapping{QName: QName{XSDNamespace, local}, Type: t, Kind: Scalar}, nil
	}
	return nil, &UnresolvableTypeError{Type: t, Reason: t.Kind().String() + " has no protocol mapping"}
}

func (r *Registry) resolveProto(t reflect.Type) (*Mapping, error) {
	var msg proto.Message
	if t.Kind() == reflect.Ptr {
		msg, _ = reflect.New(t.Elem()).Interface().(proto.Message)
	}
	if msg == nil {
		return nil, &UnresolvableTypeError{Type: t, Reason: "proto message must be a pointer type"}
	}
	name := string(msg.ProtoReflect().Descriptor().FullName())
	return &Mapping{QName: QName{ProtoNamespace, name}, Type: t, Kind: Proto}, nil
}

func kindOf(t reflect.Type) Kind {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch {
	case t == typeOfBytes:
		return Binary
	case t.Kind() == reflect.Struct && t != typeOfTime:
		return Struct
	case t.Kind() == reflect.Slice || t.Kind() == reflect.Array:
		return Array
	}
	return Scalar
}

package pytree

import "fmt"

// registry maps record type names to declared field orders. Loading a
// record whose type name is registered maps the stored fields onto the
// declared order; unregistered names load with the stored field order.
var registry = map[string][]string{}

// RegisterRecord declares a record schema: a type name and its field
// names in order. Registering the same name twice replaces the schema.
func RegisterRecord(typeName string, fields []string) {
	registry[typeName] = append([]string(nil), fields...)
}

// LookupRecord returns the declared field order for a registered
// record type name.
func LookupRecord(typeName string) ([]string, bool) {
	fields, ok := registry[typeName]
	return fields, ok
}

// BindRecord reorders a generic record's fields onto the schema
// registered under its type name, if any. With no registered schema
// the record is returned unchanged. Every declared field must be
// present in the record.
func BindRecord(n *Node) (*Node, error) {
	if n.Kind() != KindRecord {
		return n, nil
	}
	fields, ok := LookupRecord(n.TypeName())
	if !ok {
		return n, nil
	}

	bound := &Node{kind: KindRecord, typeName: n.typeName}
	for _, f := range fields {
		child, ok := n.Get(f)
		if !ok {
			return nil, fmt.Errorf("record %q: missing field %q", n.typeName, f)
		}
		bound.Put(f, child)
	}
	return bound, nil
}

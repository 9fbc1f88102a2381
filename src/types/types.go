package types

import (
	"fmt"
	"strings"
)

type (
	// ID is the stable identity of a type. Builtins always have the same ids
	// and declared types are numbered in the order they were defined.
	ID uint32
	// Kind distinguishes host value types from node types.
	Kind uint8
	// FieldKind describes the declared shape of a node field.
	FieldKind uint8
	// Field is a single entry of a node type's field table.
	Field struct {
		Name string    `toml:"name"`
		Kind FieldKind `toml:"kind"`
	}
	// Type describes a type that a value can be checked against. Types with a
	// field table can be decomposed by record patterns.
	Type struct {
		ID       ID
		Name     string
		Path     string
		Kind     Kind
		Abstract bool
		Supers   []*Type
		Fields   []Field
		fieldIdx map[string]int
		extended bool
	}
)

const (
	// KindHost is a type of plain values like strings and sequences.
	KindHost Kind = iota
	// KindNode is a type of tree nodes.
	KindNode
)

const (
	// FieldScalar is a field holding a single value or node.
	FieldScalar FieldKind = iota
	// FieldScalarList is a field holding a sequence of plain values.
	FieldScalarList
	// FieldNodeList is a field holding a sequence of nodes.
	FieldNodeList
)

const (
	// NameObject is a label for the object type.
	NameObject = "Object"
	// NameNil is a label for the nil type.
	NameNil = "Nil"
	// NameBool is a label for the bool type.
	NameBool = "Bool"
	// NameInteger is a label for the integer type.
	NameInteger = "Integer"
	// NameFloat is a label for the float type.
	NameFloat = "Float"
	// NameString is a label for the string type.
	NameString = "String"
	// NameSymbol is a label for the symbol type.
	NameSymbol = "Symbol"
	// NameArray is a label for the array type.
	NameArray = "Array"
	// NameNode is a label for the node type.
	NameNode = "Node"
)

var (
	// Object is the type every other type descends from.
	Object = &Type{ID: 0, Name: NameObject, Kind: KindHost, Abstract: true}
	// Nil is the type of nil.
	Nil = &Type{ID: 1, Name: NameNil, Kind: KindHost, Supers: []*Type{Object}}
	// Bool is the type of booleans.
	Bool = &Type{ID: 2, Name: NameBool, Kind: KindHost, Supers: []*Type{Object}}
	// Integer is the type of all go integers.
	Integer = &Type{ID: 3, Name: NameInteger, Kind: KindHost, Supers: []*Type{Object}}
	// Float is the type of float64 values.
	Float = &Type{ID: 4, Name: NameFloat, Kind: KindHost, Supers: []*Type{Object}}
	// String is the type of strings.
	String = &Type{ID: 5, Name: NameString, Kind: KindHost, Supers: []*Type{Object}}
	// Symbol is the type of symbols.
	Symbol = &Type{ID: 6, Name: NameSymbol, Kind: KindHost, Supers: []*Type{Object}}
	// Array is the type of positional sequences.
	Array = &Type{ID: 7, Name: NameArray, Kind: KindHost, Supers: []*Type{Object}}
	// Node is the abstract type all node types descend from.
	Node = &Type{ID: 8, Name: NameNode, Kind: KindNode, Abstract: true, Supers: []*Type{Object}}
	// Builtins are the types every registry starts with, indexed by their id.
	Builtins = []*Type{Object, Nil, Bool, Integer, Float, String, Symbol, Array, Node}
)

// FullName is the name of the type prefixed by its namespace path.
func (t *Type) FullName() string {
	if t.Path == "" {
		return t.Name
	}
	return t.Path + pathSep + t.Name
}

func (t *Type) String() string { return t.FullName() }

// IsA reports whether t is other or descends from it.
func (t *Type) IsA(other *Type) bool {
	if t == other {
		return true
	}
	for _, super := range t.Supers {
		if super.IsA(other) {
			return true
		}
	}
	return false
}

// Decomposable reports whether the type has a field table.
func (t *Type) Decomposable() bool { return t.Fields != nil }

// Groupable reports whether values can be dispatched to this type by their
// exact identity, which is only true for concrete node types that no other
// type descends from.
func (t *Type) Groupable() bool { return t.Kind == KindNode && !t.Abstract && !t.extended }

// Field returns the declared field with the given name.
func (t *Type) Field(name string) (Field, bool) {
	idx, ok := t.FieldIndex(name)
	if !ok {
		return Field{}, false
	}
	return t.Fields[idx], true
}

// FieldIndex returns the position of the named field in the field table.
func (t *Type) FieldIndex(name string) (int, bool) {
	idx, ok := t.fieldIdx[name]
	return idx, ok
}

// IsList reports whether the field holds a sequence.
func (k FieldKind) IsList() bool { return k == FieldScalarList || k == FieldNodeList }

func (k FieldKind) String() string {
	switch k {
	case FieldScalarList:
		return "scalar_list"
	case FieldNodeList:
		return "node_list"
	default:
		return "scalar"
	}
}

// UnmarshalText allows field kinds to be declared by name in toml.
func (k *FieldKind) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "scalar", "node":
		*k = FieldScalar
	case "scalar_list", "constant_list":
		*k = FieldScalarList
	case "node_list":
		*k = FieldNodeList
	default:
		return fmt.Errorf("unknown field kind %q", text)
	}
	return nil
}

// MarshalText renders the field kind by name.
func (k FieldKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func indexFields(fields []Field) (map[string]int, error) {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field %v has no name", i)
		} else if _, ok := idx[f.Name]; ok {
			return nil, fmt.Errorf("duplicate field %v", f.Name)
		}
		idx[f.Name] = i
	}
	return idx, nil
}

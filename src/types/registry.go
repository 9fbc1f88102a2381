package types

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/tanema/nodepat/src/conf"
)

const pathSep = conf.PATHSEP

type (
	// Namespace is a named scope of types and child namespaces. Namespaces are
	// only read through the registry that owns them.
	Namespace struct {
		name     string
		path     string
		types    map[string]*Type
		children map[string]*Namespace
	}
	// Registry resolves names to type descriptors. It should be fully populated
	// before patterns are compiled against it.
	Registry struct {
		mu        sync.RWMutex
		root      *Namespace
		defaultNS *Namespace
		byID      []*Type
	}
	// Decl is a type declaration as read from toml.
	Decl struct {
		Namespace string   `toml:"namespace"`
		Name      string   `toml:"name"`
		Abstract  bool     `toml:"abstract"`
		Supers    []string `toml:"supers"`
		Fields    []Field  `toml:"field"`
		// Alias declares Name as another name for an existing type.
		Alias string `toml:"alias"`
	}
)

func newNamespace(parent *Namespace, name string) *Namespace {
	ns := &Namespace{
		name:     name,
		types:    map[string]*Type{},
		children: map[string]*Namespace{},
	}
	if parent != nil && parent.path != "" {
		ns.path = parent.path + pathSep + name
	} else {
		ns.path = name
	}
	return ns
}

// Name is the last segment of the namespace path.
func (ns *Namespace) Name() string { return ns.name }

// Path is the full path of the namespace, empty for the root.
func (ns *Namespace) Path() string { return ns.path }

// NewRegistry creates a registry holding the builtins in its root namespace and
// an empty default namespace with the given path.
func NewRegistry(defaultNamespace string) *Registry {
	reg := &Registry{
		root: newNamespace(nil, ""),
		byID: append([]*Type{}, Builtins...),
	}
	for _, t := range Builtins {
		reg.root.types[t.Name] = t
	}
	reg.defaultNS = reg.ensureNamespace(splitPath(defaultNamespace))
	return reg
}

// Root returns the root namespace.
func (reg *Registry) Root() *Namespace { return reg.root }

// DefaultNamespace returns the namespace single segment names are looked up in first.
func (reg *Registry) DefaultNamespace() *Namespace { return reg.defaultNS }

// Namespace returns the child namespace of parent with the given name.
func (reg *Registry) Namespace(parent *Namespace, name string) (*Namespace, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	ns, ok := parent.children[name]
	return ns, ok
}

// Type returns the type named name directly inside ns.
func (reg *Registry) Type(ns *Namespace, name string) (*Type, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	t, ok := ns.types[name]
	return t, ok
}

// ByID returns the type with the given id.
func (reg *Registry) ByID(id ID) (*Type, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	if int(id) >= len(reg.byID) {
		return nil, false
	}
	return reg.byID[id], true
}

// Types returns every type in the registry ordered by id.
func (reg *Registry) Types() []*Type {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return append([]*Type{}, reg.byID...)
}

// Find resolves a full name like ast::CallExpr starting at the root namespace.
func (reg *Registry) Find(fullName string) (*Type, bool) {
	parts := splitPath(fullName)
	if len(parts) == 0 {
		return nil, false
	}
	ns := reg.root
	for _, part := range parts[:len(parts)-1] {
		child, ok := reg.Namespace(ns, part)
		if !ok {
			return nil, false
		}
		ns = child
	}
	return reg.Type(ns, parts[len(parts)-1])
}

// Define declares a new node type. Types without supers descend from Node and
// concrete types always get a field table, even when it is empty.
func (reg *Registry) Define(namespace, name string, abstract bool, fields []Field, supers ...*Type) (*Type, error) {
	if name == "" {
		return nil, fmt.Errorf("cannot define a type without a name in %q", namespace)
	}
	if len(supers) == 0 {
		supers = []*Type{Node}
	}
	for _, super := range supers {
		if super == nil || super.Kind != KindNode {
			return nil, fmt.Errorf("%v cannot descend from %v, only node types can be extended", name, super)
		}
	}
	if fields == nil && !abstract {
		fields = []Field{}
	}
	idx, err := indexFields(fields)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", name, err)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	ns := reg.ensureNamespace(splitPath(namespace))
	if _, exists := ns.types[name]; exists {
		return nil, fmt.Errorf("%v is already defined", qualify(ns.path, name))
	}
	t := &Type{
		ID:       ID(len(reg.byID)),
		Name:     name,
		Path:     ns.path,
		Kind:     KindNode,
		Abstract: abstract,
		Supers:   supers,
		Fields:   fields,
		fieldIdx: idx,
	}
	for _, super := range supers {
		if !super.Abstract {
			super.extended = true
		}
	}
	reg.byID = append(reg.byID, t)
	ns.types[name] = t
	return t, nil
}

// Alias makes an existing type available under another name.
func (reg *Registry) Alias(namespace, name string, t *Type) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	ns := reg.ensureNamespace(splitPath(namespace))
	if _, exists := ns.types[name]; exists {
		return fmt.Errorf("%v is already defined", qualify(ns.path, name))
	}
	ns.types[name] = t
	return nil
}

// Declare defines every declaration in order, so declarations may refer to
// supers declared before them.
func (reg *Registry) Declare(decls []Decl) error {
	for _, decl := range decls {
		if decl.Alias != "" {
			target, ok := reg.lookupName(decl.Alias)
			if !ok {
				return fmt.Errorf("alias %v refers to unknown type %v", decl.Name, decl.Alias)
			}
			if err := reg.Alias(decl.Namespace, decl.Name, target); err != nil {
				return err
			}
			continue
		}
		supers := make([]*Type, 0, len(decl.Supers))
		for _, name := range decl.Supers {
			super, ok := reg.lookupName(name)
			if !ok {
				return fmt.Errorf("%v refers to unknown super type %v", decl.Name, name)
			}
			supers = append(supers, super)
		}
		if _, err := reg.Define(decl.Namespace, decl.Name, decl.Abstract, decl.Fields, supers...); err != nil {
			return err
		}
	}
	return nil
}

// Load reads [[type]] declarations from toml and declares them. Any other key
// in the document is ignored so declarations can share a file with the cli
// configuration.
func (reg *Registry) Load(r io.Reader) error {
	var doc struct {
		Types []Decl `toml:"type"`
	}
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return err
	}
	return reg.Declare(doc.Types)
}

// LoadFile reads type declarations from a toml file.
func (reg *Registry) LoadFile(path string) error {
	var doc struct {
		Types []Decl `toml:"type"`
	}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return fmt.Errorf("parse error in %s: %w", path, err)
	}
	return reg.Declare(doc.Types)
}

func (reg *Registry) lookupName(name string) (*Type, bool) {
	if !strings.Contains(name, pathSep) {
		if t, ok := reg.Type(reg.defaultNS, name); ok {
			return t, true
		}
	}
	return reg.Find(name)
}

// must be called with the write lock held, or during construction.
func (reg *Registry) ensureNamespace(parts []string) *Namespace {
	ns := reg.root
	for _, part := range parts {
		child, ok := ns.children[part]
		if !ok {
			child = newNamespace(ns, part)
			ns.children[part] = child
		}
		ns = child
	}
	return ns
}

func splitPath(path string) []string {
	path = strings.TrimPrefix(path, pathSep)
	if path == "" {
		return nil
	}
	return strings.Split(path, pathSep)
}

func qualify(path, name string) string {
	if path == "" {
		return name
	}
	return path + pathSep + name
}

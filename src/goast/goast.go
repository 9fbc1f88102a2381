// Package goast exposes go source trees as pattern subjects. Register declares
// the go/ast node types in a registry and a Converter turns parsed go/ast trees
// into subject nodes of those types.
package goast

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"

	nodes "github.com/tanema/nodepat/src/ast"
	"github.com/tanema/nodepat/src/conf"
	"github.com/tanema/nodepat/src/types"
)

// Namespace is where the go/ast types are declared.
const Namespace = conf.DEFAULTNAMESPACE

type (
	// Converter converts go/ast trees parsed with fset into subject trees. It
	// caches type lookups and is not safe for concurrent use.
	Converter struct {
		reg    *types.Registry
		fset   *token.FileSet
		byType map[reflect.Type]*types.Type
	}
	abstractType struct {
		name  string
		iface reflect.Type
	}
)

var (
	abstracts = []abstractType{
		{"Expr", reflect.TypeFor[ast.Expr]()},
		{"Stmt", reflect.TypeFor[ast.Stmt]()},
		{"Decl", reflect.TypeFor[ast.Decl]()},
		{"Spec", reflect.TypeFor[ast.Spec]()},
	}
	nodeTypes = []ast.Node{
		(*ast.Comment)(nil), (*ast.CommentGroup)(nil), (*ast.Field)(nil), (*ast.FieldList)(nil),
		(*ast.BadExpr)(nil), (*ast.Ident)(nil), (*ast.Ellipsis)(nil), (*ast.BasicLit)(nil),
		(*ast.FuncLit)(nil), (*ast.CompositeLit)(nil), (*ast.ParenExpr)(nil), (*ast.SelectorExpr)(nil),
		(*ast.IndexExpr)(nil), (*ast.IndexListExpr)(nil), (*ast.SliceExpr)(nil), (*ast.TypeAssertExpr)(nil),
		(*ast.CallExpr)(nil), (*ast.StarExpr)(nil), (*ast.UnaryExpr)(nil), (*ast.BinaryExpr)(nil),
		(*ast.KeyValueExpr)(nil), (*ast.ArrayType)(nil), (*ast.StructType)(nil), (*ast.FuncType)(nil),
		(*ast.InterfaceType)(nil), (*ast.MapType)(nil), (*ast.ChanType)(nil),
		(*ast.BadStmt)(nil), (*ast.DeclStmt)(nil), (*ast.EmptyStmt)(nil), (*ast.LabeledStmt)(nil),
		(*ast.ExprStmt)(nil), (*ast.SendStmt)(nil), (*ast.IncDecStmt)(nil), (*ast.AssignStmt)(nil),
		(*ast.GoStmt)(nil), (*ast.DeferStmt)(nil), (*ast.ReturnStmt)(nil), (*ast.BranchStmt)(nil),
		(*ast.BlockStmt)(nil), (*ast.IfStmt)(nil), (*ast.CaseClause)(nil), (*ast.SwitchStmt)(nil),
		(*ast.TypeSwitchStmt)(nil), (*ast.CommClause)(nil), (*ast.SelectStmt)(nil), (*ast.ForStmt)(nil),
		(*ast.RangeStmt)(nil),
		(*ast.ImportSpec)(nil), (*ast.ValueSpec)(nil), (*ast.TypeSpec)(nil),
		(*ast.BadDecl)(nil), (*ast.GenDecl)(nil), (*ast.FuncDecl)(nil),
		(*ast.File)(nil),
	}
	nodeIface = reflect.TypeFor[ast.Node]()
	tokenType = reflect.TypeFor[token.Token]()
	skipTypes = map[reflect.Type]bool{
		reflect.TypeFor[token.Pos]():   true,
		reflect.TypeFor[*ast.Object](): true,
		reflect.TypeFor[*ast.Scope]():  true,
	}
	skipNamed = map[string]bool{
		"File.Unresolved": true,
	}
)

// Register declares the abstract Expr, Stmt, Decl and Spec types and every
// go/ast node struct in reg. Node types descend from the abstract types they
// implement.
func Register(reg *types.Registry) error {
	supers := make([]*types.Type, len(abstracts))
	for i, abs := range abstracts {
		t, err := reg.Define(Namespace, abs.name, true, nil)
		if err != nil {
			return err
		}
		supers[i] = t
	}
	for _, sample := range nodeTypes {
		ptr := reflect.TypeOf(sample)
		var parents []*types.Type
		for i, abs := range abstracts {
			if ptr.Implements(abs.iface) {
				parents = append(parents, supers[i])
			}
		}
		if _, err := reg.Define(Namespace, ptr.Elem().Name(), false, fieldsOf(ptr.Elem()), parents...); err != nil {
			return err
		}
	}
	return nil
}

func fieldsOf(st reflect.Type) []types.Field {
	fields := []types.Field{}
	for i := range st.NumField() {
		field := st.Field(i)
		if !field.IsExported() || skipTypes[field.Type] || skipNamed[st.Name()+"."+field.Name] {
			continue
		}
		kind := types.FieldScalar
		if field.Type.Kind() == reflect.Slice {
			kind = types.FieldScalarList
			if field.Type.Elem().Implements(nodeIface) {
				kind = types.FieldNodeList
			}
		}
		fields = append(fields, types.Field{Name: field.Name, Kind: kind})
	}
	return fields
}

// NewConverter creates a converter for trees parsed with fset. The go/ast
// types must already be registered in reg.
func NewConverter(reg *types.Registry, fset *token.FileSet) *Converter {
	return &Converter{reg: reg, fset: fset, byType: map[reflect.Type]*types.Type{}}
}

// Convert converts a go/ast node and all of its children.
func (c *Converter) Convert(node ast.Node) (*nodes.Node, error) {
	val, err := c.convert(reflect.ValueOf(node))
	if err != nil {
		return nil, err
	}
	converted, _ := val.(*nodes.Node)
	return converted, nil
}

func (c *Converter) convert(val reflect.Value) (any, error) {
	switch val.Kind() {
	case reflect.Invalid:
		return nil, nil
	case reflect.Interface, reflect.Pointer:
		if val.IsNil() {
			return nil, nil
		} else if val.Kind() == reflect.Interface {
			return c.convert(val.Elem())
		}
		node, ok := val.Interface().(ast.Node)
		if !ok || val.Elem().Kind() != reflect.Struct {
			return nil, fmt.Errorf("cannot convert %v", val.Type())
		}
		return c.convertNode(node, val.Elem())
	case reflect.Slice:
		elems := make([]any, val.Len())
		for i := range elems {
			elem, err := c.convert(val.Index(i))
			if err != nil {
				return nil, err
			}
			elems[i] = elem
		}
		return elems, nil
	case reflect.String:
		return val.String(), nil
	case reflect.Bool:
		return val.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if val.Type() == tokenType {
			return nodes.Symbol(token.Token(val.Int()).String()), nil
		}
		return int(val.Int()), nil
	default:
		return nil, fmt.Errorf("cannot convert %v", val.Type())
	}
}

func (c *Converter) convertNode(node ast.Node, val reflect.Value) (*nodes.Node, error) {
	t, err := c.typeFor(val.Type())
	if err != nil {
		return nil, err
	}
	converted := &nodes.Node{Type: t, Values: make([]any, len(t.Fields))}
	if pos := node.Pos(); pos.IsValid() && c.fset != nil {
		converted.Pos = c.fset.Position(pos).String()
	}
	for i, field := range t.Fields {
		value, err := c.convert(val.FieldByName(field.Name))
		if err != nil {
			return nil, fmt.Errorf("%v.%v: %w", t.Name, field.Name, err)
		}
		converted.Values[i] = value
	}
	return converted, nil
}

func (c *Converter) typeFor(rt reflect.Type) (*types.Type, error) {
	if t, ok := c.byType[rt]; ok {
		return t, nil
	}
	t, ok := c.reg.Find(Namespace + conf.PATHSEP + rt.Name())
	if !ok {
		return nil, fmt.Errorf("go/ast type %v is not registered", rt.Name())
	}
	c.byType[rt] = t
	return t, nil
}

// ParseFile parses a go source file and converts it. src is passed to
// go/parser and may be nil to read filename.
func ParseFile(reg *types.Registry, filename string, src any) (*nodes.Node, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}
	return NewConverter(reg, fset).Convert(file)
}

// ParseExpr parses and converts a single go expression.
func ParseExpr(reg *types.Registry, src string) (*nodes.Node, error) {
	fset := token.NewFileSet()
	expr, err := parser.ParseExprFrom(fset, "<expr>", src, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}
	return NewConverter(reg, fset).Convert(expr)
}

// Package nodepat finds nodes in syntax trees that match a pattern. Patterns
// describe the shape of a node by its type, its fields and literal values:
//
//	CallExpr(Fun: Ident(Name: "println"), Args: [BasicLit(Kind: :STRING)])
//	BinaryExpr(Op: :"+" | :"-", Y: BasicLit(Value: "0"))
//	Ident(Name: /^_/) | nil
//
// A pattern is compiled once to a small bytecode program that can then be run
// against any amount of subjects concurrently. The go/ast node types are
// declared in the DefaultRegistry, other trees can declare their own types in
// a registry and build subjects with the ast package.
package nodepat

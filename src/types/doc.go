// Package types contains the type descriptors that patterns are checked against
// and the registry that resolves constant paths into them. A type is either a
// builtin host type, describing plain values like strings and integers, or a
// node type that may carry an ordered field table. Every type has a stable
// numeric ID that the vm dispatches on.
//
// Types are organised into namespaces. The root namespace holds the builtins
// and any namespace declared from a registry; single segment names are looked
// up in the default namespace before the root.
package types //nolint:revive

// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package component

// ExternKind enumerates the five runtime extern-type variants a
// component's import/export can resolve to (§4.3), mirroring
// format.ExternKind.
type ExternKind uint8

const (
	ExternKindFunction ExternKind = iota
	ExternKindValue
	ExternKindType
	ExternKindInstance
	ExternKindComponent
)

// FuncParam is one named, typed runtime function parameter.
type FuncParam struct {
	Name string
	Type ValTypeRef
}

// NamedExternType pairs an exported or imported name with the extern
// type it names, used by the Instance and Component variants of
// ExternType.
type NamedExternType struct {
	Name string
	Type ExternType
}

// ImportEntry is one component-level import: a two-part namespaced name
// plus the extern type the import must satisfy.
type ImportEntry struct {
	Namespace string
	Name      string
	Type      ExternType
}

// ExternType is the runtime spelling of a component import or export
// signature: a function signature, a plain value type, a type
// reference, or the imports/exports of a nested instance or component.
// Exactly one group of fields is populated, selected by Kind.
type ExternType struct {
	Kind ExternKind

	// ExternKindFunction
	FuncParams  []FuncParam
	FuncResults []ValTypeRef

	// ExternKindValue
	ValueType ValTypeRef

	// ExternKindType
	TypeIndex ValTypeRef

	// ExternKindInstance
	InstanceExports []NamedExternType

	// ExternKindComponent
	ComponentImports []ImportEntry
	ComponentExports []NamedExternType
}

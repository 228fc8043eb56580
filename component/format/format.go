// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package format holds the byte-level spelling of Component-Model types
// and values used during decode — structurally mirroring the runtime
// representation in package component, but carrying layout-specific
// spellings such as separate ResultErr/ResultBoth result-type cases
// (§3.3).
package format

// Kind enumerates the format-level type discriminants. It mirrors
// component.Kind except that "result" is split into three wire shapes.
type Kind uint8

const (
	KindBool Kind = iota
	KindS8
	KindU8
	KindS16
	KindU16
	KindS32
	KindU32
	KindS64
	KindU64
	KindF32
	KindF64
	KindChar
	KindString
	KindRecord
	KindVariant
	KindList
	KindFixedList
	KindTuple
	KindFlags
	KindEnum
	KindOption
	KindResultOK   // result<T> with no declared error type
	KindResultErr  // result<_, E> with no declared ok type
	KindResultBoth // result<T, E>
	KindOwnHandle
	KindBorrowHandle
	KindVoid
	KindErrorContext
)

// TypeRef is the format-level equivalent of component.ValTypeRef: an
// index into the section parser's local type table (§4.3), not yet
// resolved against a runtime TypeStore.
type TypeRef uint32

// Field mirrors component.Field at the wire level.
type Field struct {
	Name string
	Type TypeRef
}

// Case mirrors component.Case at the wire level.
type Case struct {
	Name       string
	Payload    TypeRef
	HasPayload bool
}

// ValType is the format-level spelling of a Component-Model type.
type ValType struct {
	Kind Kind

	RecordFields []Field
	VariantCases []Case
	ListElem     TypeRef
	FixedListLen uint32
	TupleElems   []TypeRef
	FlagsNames   []string
	EnumNames    []string
	OptionElem   TypeRef
	ResultOK     TypeRef
	ResultErr    TypeRef
	HandleRes    uint32
}

// ExternKind enumerates the five wire-level extern-type variants a
// component's import/export section can name (§4.3).
type ExternKind uint8

const (
	ExternKindFunction ExternKind = iota
	ExternKindValue
	ExternKindType
	ExternKindInstance
	ExternKindComponent
)

// FuncParam is one named, typed function parameter at the wire level.
type FuncParam struct {
	Name string
	Type TypeRef
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

// ExternType is the format-level spelling of a component import or
// export signature: a function signature, a plain value type, a type
// reference, or the imports/exports of a nested instance or component
// (§4.3). Exactly one group of fields is populated, selected by Kind.
type ExternType struct {
	Kind ExternKind

	// ExternKindFunction
	FuncParams  []FuncParam
	FuncResults []TypeRef

	// ExternKindValue
	ValueType TypeRef

	// ExternKindType
	TypeIndex TypeRef

	// ExternKindInstance
	InstanceExports []NamedExternType

	// ExternKindComponent
	ComponentImports []ImportEntry
	ComponentExports []NamedExternType
}

// ConstValue is the format-level spelling of a literal value found in a
// Component-Model value section.
type ConstValue struct {
	Kind Kind

	Bool bool
	S64  int64
	U64  uint64
	F32  uint32 // bit pattern
	F64  uint64 // bit pattern
	Char rune
	Str  string

	Fields      []ConstValue
	CaseIdx     int
	CasePayload *ConstValue
	Items       []ConstValue
	FlagBits    []bool
	EnumIdx     int
	OptionVal   *ConstValue
	ResultOK    bool
	ResultVal   *ConstValue
	HandleIdx   uint32
}

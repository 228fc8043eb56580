// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package component

import (
	"io"
)

// ToBytes serializes t, resolving child ValTypeRefs through store so the
// wire form is self-contained (children are inlined, not indexed).
func (t ValType) ToBytes(w io.Writer, store *TypeStore) error {
	if _, err := w.Write([]byte{byte(t.Kind)}); err != nil {
		return err
	}
	switch t.Kind {
	case KindRecord:
		if err := writeUvarint(w, uint64(len(t.RecordFields))); err != nil {
			return err
		}
		for _, f := range t.RecordFields {
			if err := writeString(w, f.Name); err != nil {
				return err
			}
			child, err := store.Resolve(f.Type)
			if err != nil {
				return err
			}
			if err := child.ToBytes(w, store); err != nil {
				return err
			}
		}
	case KindVariant:
		if err := writeUvarint(w, uint64(len(t.VariantCases))); err != nil {
			return err
		}
		for _, c := range t.VariantCases {
			if err := writeString(w, c.Name); err != nil {
				return err
			}
			has := byte(0)
			if c.HasPayload {
				has = 1
			}
			if _, err := w.Write([]byte{has}); err != nil {
				return err
			}
			if c.HasPayload {
				child, err := store.Resolve(c.Payload)
				if err != nil {
					return err
				}
				if err := child.ToBytes(w, store); err != nil {
					return err
				}
			}
		}
	case KindList, KindFixedList:
		if t.Kind == KindFixedList {
			if err := writeUvarint(w, uint64(t.FixedListLen)); err != nil {
				return err
			}
		}
		child, err := store.Resolve(t.ListElem)
		if err != nil {
			return err
		}
		return child.ToBytes(w, store)
	case KindTuple:
		if err := writeUvarint(w, uint64(len(t.TupleElems))); err != nil {
			return err
		}
		for _, r := range t.TupleElems {
			child, err := store.Resolve(r)
			if err != nil {
				return err
			}
			if err := child.ToBytes(w, store); err != nil {
				return err
			}
		}
	case KindFlags:
		if err := writeUvarint(w, uint64(len(t.FlagsNames))); err != nil {
			return err
		}
		for _, n := range t.FlagsNames {
			if err := writeString(w, n); err != nil {
				return err
			}
		}
	case KindEnum:
		if err := writeUvarint(w, uint64(len(t.EnumNames))); err != nil {
			return err
		}
		for _, n := range t.EnumNames {
			if err := writeString(w, n); err != nil {
				return err
			}
		}
	case KindOption:
		child, err := store.Resolve(t.OptionElem)
		if err != nil {
			return err
		}
		return child.ToBytes(w, store)
	case KindResult:
		hasOK := byte(0)
		if t.ResultOKSet {
			hasOK = 1
		}
		hasErr := byte(0)
		if t.ResultErrSet {
			hasErr = 1
		}
		if _, err := w.Write([]byte{hasOK, hasErr}); err != nil {
			return err
		}
		if t.ResultOKSet {
			child, err := store.Resolve(t.ResultOK)
			if err != nil {
				return err
			}
			if err := child.ToBytes(w, store); err != nil {
				return err
			}
		}
		if t.ResultErrSet {
			child, err := store.Resolve(t.ResultErr)
			if err != nil {
				return err
			}
			if err := child.ToBytes(w, store); err != nil {
				return err
			}
		}
	case KindOwnHandle, KindBorrowHandle:
		return writeUvarint(w, uint64(t.HandleRes))
	}
	return nil
}

// FromBytesType deserializes a ValType previously produced by ToBytes,
// registering each decoded child in store under a new ref.
func FromBytesType(r io.Reader, store *TypeStore) (ValType, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = &byteReaderAdapter{r: r}
	}

	var kindByte [1]byte
	if _, err := io.ReadFull(r, kindByte[:]); err != nil {
		return ValType{}, err
	}
	t := ValType{Kind: Kind(kindByte[0])}

	switch t.Kind {
	case KindRecord:
		n, err := readUvarint(br)
		if err != nil {
			return t, err
		}
		fields := make([]Field, 0, n)
		for i := uint64(0); i < n; i++ {
			name, err := readString(r, br)
			if err != nil {
				return t, err
			}
			child, err := FromBytesType(r, store)
			if err != nil {
				return t, err
			}
			ref, err := store.Register(child)
			if err != nil {
				return t, err
			}
			fields = append(fields, Field{Name: name, Type: ref})
		}
		t.RecordFields = fields
	case KindVariant:
		n, err := readUvarint(br)
		if err != nil {
			return t, err
		}
		cases := make([]Case, 0, n)
		for i := uint64(0); i < n; i++ {
			name, err := readString(r, br)
			if err != nil {
				return t, err
			}
			var has [1]byte
			if _, err := io.ReadFull(r, has[:]); err != nil {
				return t, err
			}
			c := Case{Name: name, HasPayload: has[0] != 0}
			if c.HasPayload {
				child, err := FromBytesType(r, store)
				if err != nil {
					return t, err
				}
				ref, err := store.Register(child)
				if err != nil {
					return t, err
				}
				c.Payload = ref
			}
			cases = append(cases, c)
		}
		t.VariantCases = cases
	case KindList, KindFixedList:
		if t.Kind == KindFixedList {
			n, err := readUvarint(br)
			if err != nil {
				return t, err
			}
			t.FixedListLen = uint32(n)
		}
		child, err := FromBytesType(r, store)
		if err != nil {
			return t, err
		}
		ref, err := store.Register(child)
		if err != nil {
			return t, err
		}
		t.ListElem = ref
	case KindTuple:
		n, err := readUvarint(br)
		if err != nil {
			return t, err
		}
		elems := make([]ValTypeRef, 0, n)
		for i := uint64(0); i < n; i++ {
			child, err := FromBytesType(r, store)
			if err != nil {
				return t, err
			}
			ref, err := store.Register(child)
			if err != nil {
				return t, err
			}
			elems = append(elems, ref)
		}
		t.TupleElems = elems
	case KindFlags:
		n, err := readUvarint(br)
		if err != nil {
			return t, err
		}
		names := make([]string, 0, n)
		for i := uint64(0); i < n; i++ {
			name, err := readString(r, br)
			if err != nil {
				return t, err
			}
			names = append(names, name)
		}
		t.FlagsNames = names
	case KindEnum:
		n, err := readUvarint(br)
		if err != nil {
			return t, err
		}
		names := make([]string, 0, n)
		for i := uint64(0); i < n; i++ {
			name, err := readString(r, br)
			if err != nil {
				return t, err
			}
			names = append(names, name)
		}
		t.EnumNames = names
	case KindOption:
		child, err := FromBytesType(r, store)
		if err != nil {
			return t, err
		}
		ref, err := store.Register(child)
		if err != nil {
			return t, err
		}
		t.OptionElem = ref
	case KindResult:
		var flags [2]byte
		if _, err := io.ReadFull(r, flags[:]); err != nil {
			return t, err
		}
		t.ResultOKSet = flags[0] != 0
		t.ResultErrSet = flags[1] != 0
		if t.ResultOKSet {
			child, err := FromBytesType(r, store)
			if err != nil {
				return t, err
			}
			ref, err := store.Register(child)
			if err != nil {
				return t, err
			}
			t.ResultOK = ref
		}
		if t.ResultErrSet {
			child, err := FromBytesType(r, store)
			if err != nil {
				return t, err
			}
			ref, err := store.Register(child)
			if err != nil {
				return t, err
			}
			t.ResultErr = ref
		}
	case KindOwnHandle, KindBorrowHandle:
		n, err := readUvarint(br)
		if err != nil {
			return t, err
		}
		t.HandleRes = uint32(n)
	}
	return t, nil
}

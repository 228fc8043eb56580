// Copyright (C) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package component

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pulseengine/wrt-go/foundation"
)

// Each value and type encodes as discriminant:u8 | payload..., per §4.2.
// Composite payloads recursively serialize their children. This keeps
// the wire format flat: a ValueStore is serialized by walking refs
// depth-first and inlining each sub-value's bytes in place, so decode
// can rebuild a fresh ValueStore without needing the original indices.

func writeUvarint(w io.Writer, v uint64) error {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, v)
	_, err := w.Write(buf[:n])
	return err
}

func writeString(w io.Writer, s string) error {
	if err := writeUvarint(w, uint64(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readUvarint(r io.ByteReader) (uint64, error) {
	return binary.ReadUvarint(r)
}

func readString(r io.Reader, br io.ByteReader) (string, error) {
	n, err := readUvarint(br)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// ToBytes serializes v, resolving any sub-values through store.
func (v ComponentValue) ToBytes(w io.Writer, store *ValueStore) error {
	if _, err := w.Write([]byte{byte(v.Kind)}); err != nil {
		return err
	}
	switch v.Kind {
	case KindBool:
		b := byte(0)
		if v.Bool {
			b = 1
		}
		_, err := w.Write([]byte{b})
		return err
	case KindS8, KindS16, KindS32, KindS64:
		return writeUvarint(w, uint64(v.S64))
	case KindU8, KindU16, KindU32, KindU64:
		return writeUvarint(w, v.U64)
	case KindF32:
		return writeUvarint(w, uint64(v.F32))
	case KindF64:
		return writeUvarint(w, uint64(v.F64))
	case KindChar:
		return writeUvarint(w, uint64(v.Char))
	case KindString:
		return writeString(w, v.Str)
	case KindRecord, KindTuple, KindList, KindFixedList, KindErrorContext:
		items := v.refList()
		if err := writeUvarint(w, uint64(len(items))); err != nil {
			return err
		}
		for _, r := range items {
			item, err := store.Get(r)
			if err != nil {
				return err
			}
			if err := item.ToBytes(w, store); err != nil {
				return err
			}
		}
		return nil
	case KindFlags:
		if err := writeUvarint(w, uint64(len(v.FlagBits))); err != nil {
			return err
		}
		for _, b := range v.FlagBits {
			bb := byte(0)
			if b {
				bb = 1
			}
			if _, err := w.Write([]byte{bb}); err != nil {
				return err
			}
		}
		return nil
	case KindEnum:
		return writeUvarint(w, uint64(v.EnumIdx))
	case KindVariant:
		if err := writeUvarint(w, uint64(v.CaseIdx)); err != nil {
			return err
		}
		has := byte(0)
		if v.HasCasePayload {
			has = 1
		}
		if _, err := w.Write([]byte{has}); err != nil {
			return err
		}
		if v.HasCasePayload {
			item, err := store.Get(v.CasePayload)
			if err != nil {
				return err
			}
			return item.ToBytes(w, store)
		}
		return nil
	case KindOption:
		set := byte(0)
		if v.OptionSet {
			set = 1
		}
		if _, err := w.Write([]byte{set}); err != nil {
			return err
		}
		if v.OptionSet {
			item, err := store.Get(v.OptionVal)
			if err != nil {
				return err
			}
			return item.ToBytes(w, store)
		}
		return nil
	case KindResult:
		ok := byte(0)
		if v.ResultOK {
			ok = 1
		}
		if _, err := w.Write([]byte{ok}); err != nil {
			return err
		}
		item, err := store.Get(v.ResultVal)
		if err != nil {
			return err
		}
		return item.ToBytes(w, store)
	case KindOwnHandle, KindBorrowHandle:
		return writeUvarint(w, uint64(v.HandleIdx))
	case KindVoid:
		return nil
	default:
		return fmt.Errorf("component: ToBytes: unknown kind %d", v.Kind)
	}
}

// FromBytesValue deserializes a ComponentValue, allocating any sub-values
// into store and returning the root value (not yet stored itself — the
// caller decides whether/where to store it).
func FromBytesValue(r io.Reader, store *ValueStore) (ComponentValue, error) {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = &byteReaderAdapter{r: r}
	}

	var kindByte [1]byte
	if _, err := io.ReadFull(r, kindByte[:]); err != nil {
		return ComponentValue{}, err
	}
	kind := Kind(kindByte[0])
	v := ComponentValue{Kind: kind}

	switch kind {
	case KindBool:
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return v, err
		}
		v.Bool = b[0] != 0
	case KindS8, KindS16, KindS32, KindS64:
		n, err := readUvarint(br)
		if err != nil {
			return v, err
		}
		v.S64 = int64(n)
	case KindU8, KindU16, KindU32, KindU64:
		n, err := readUvarint(br)
		if err != nil {
			return v, err
		}
		v.U64 = n
	case KindF32:
		n, err := readUvarint(br)
		if err != nil {
			return v, err
		}
		v.F32 = foundation.FloatBits32(n)
	case KindF64:
		n, err := readUvarint(br)
		if err != nil {
			return v, err
		}
		v.F64 = foundation.FloatBits64(n)
	case KindChar:
		n, err := readUvarint(br)
		if err != nil {
			return v, err
		}
		v.Char = rune(n)
	case KindString:
		s, err := readString(r, br)
		if err != nil {
			return v, err
		}
		v.Str = s
	case KindRecord, KindTuple, KindList, KindFixedList, KindErrorContext:
		n, err := readUvarint(br)
		if err != nil {
			return v, err
		}
		items := make([]ValueRef, 0, n)
		for i := uint64(0); i < n; i++ {
			item, err := FromBytesValue(r, store)
			if err != nil {
				return v, err
			}
			items = append(items, store.Put(item))
		}
		if kind == KindRecord {
			v.Fields = items
		} else {
			v.Items = items
		}
	case KindFlags:
		n, err := readUvarint(br)
		if err != nil {
			return v, err
		}
		bits := make([]bool, n)
		for i := range bits {
			var b [1]byte
			if _, err := io.ReadFull(r, b[:]); err != nil {
				return v, err
			}
			bits[i] = b[0] != 0
		}
		v.FlagBits = bits
	case KindEnum:
		n, err := readUvarint(br)
		if err != nil {
			return v, err
		}
		v.EnumIdx = int(n)
	case KindVariant:
		idx, err := readUvarint(br)
		if err != nil {
			return v, err
		}
		v.CaseIdx = int(idx)
		var has [1]byte
		if _, err := io.ReadFull(r, has[:]); err != nil {
			return v, err
		}
		v.HasCasePayload = has[0] != 0
		if v.HasCasePayload {
			item, err := FromBytesValue(r, store)
			if err != nil {
				return v, err
			}
			v.CasePayload = store.Put(item)
		}
	case KindOption:
		var set [1]byte
		if _, err := io.ReadFull(r, set[:]); err != nil {
			return v, err
		}
		v.OptionSet = set[0] != 0
		if v.OptionSet {
			item, err := FromBytesValue(r, store)
			if err != nil {
				return v, err
			}
			v.OptionVal = store.Put(item)
		}
	case KindResult:
		var ok [1]byte
		if _, err := io.ReadFull(r, ok[:]); err != nil {
			return v, err
		}
		v.ResultOK = ok[0] != 0
		item, err := FromBytesValue(r, store)
		if err != nil {
			return v, err
		}
		v.ResultVal = store.Put(item)
	case KindOwnHandle, KindBorrowHandle:
		n, err := readUvarint(br)
		if err != nil {
			return v, err
		}
		v.HandleIdx = uint32(n)
	case KindVoid:
		// no payload
	default:
		return v, fmt.Errorf("component: FromBytes: unknown discriminant %d", kind)
	}
	return v, nil
}

// RoundTrip serializes v and immediately deserializes the result into a
// fresh store, returning the rebuilt value and store for equality
// checks (used by invariant #1 in §8).
func RoundTrip(v ComponentValue, store *ValueStore) (ComponentValue, *ValueStore, error) {
	var buf bytes.Buffer
	if err := v.ToBytes(&buf, store); err != nil {
		return ComponentValue{}, nil, err
	}
	fresh := NewValueStore()
	out, err := FromBytesValue(&buf, fresh)
	if err != nil {
		return ComponentValue{}, nil, err
	}
	return out, fresh, nil
}

type byteReaderAdapter struct{ r io.Reader }

func (a *byteReaderAdapter) ReadByte() (byte, error) {
	var b [1]byte
	_, err := io.ReadFull(a.r, b[:])
	return b[0], err
}

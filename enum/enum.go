// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package enum provides closed value sets keyed by an integer wire tag.
//
// A Table is built once from data and maps tags to names in both
// directions; it reads and writes its values as fixed-width fields.
package enum

import (
	"errors"
	"fmt"

	"github.com/ffutop/fieldbus-codec/wire"
)

// ErrUnknownTag is matched by errors reporting a tag with no mapped value.
var ErrUnknownTag = errors.New("unknown discriminant")

// Tag is the set of integer types usable as enumeration tags.
type Tag interface {
	~uint8 | ~uint16 | ~uint32
}

// Entry binds a tag to its symbolic name.
type Entry[T Tag] struct {
	Value T
	Name  string
}

// UnknownError reports a tag that is not part of an enumeration.
type UnknownError struct {
	Enum string
	Tag  uint64
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("%s: unmapped tag 0x%02X", e.Enum, e.Tag)
}

func (e *UnknownError) Is(target error) bool { return target == ErrUnknownTag }

// Table is an immutable bidirectional tag/name lookup.
type Table[T Tag] struct {
	name   string
	width  uint8
	names  map[T]string
	values map[string]T
	order  []T
}

// NewTable builds a table whose tags occupy width bits on the wire.
// Duplicate tags, duplicate names and tags wider than width are rejected.
func NewTable[T Tag](name string, width uint8, entries ...Entry[T]) (*Table[T], error) {
	if width == 0 || width > 32 {
		return nil, fmt.Errorf("enum %s: invalid tag width %d", name, width)
	}
	t := &Table[T]{
		name:   name,
		width:  width,
		names:  make(map[T]string, len(entries)),
		values: make(map[string]T, len(entries)),
		order:  make([]T, 0, len(entries)),
	}
	for _, e := range entries {
		if width < 32 && uint64(e.Value)>>width != 0 {
			return nil, fmt.Errorf("enum %s: %s (0x%X) does not fit %d bits", name, e.Name, uint64(e.Value), width)
		}
		if prev, ok := t.names[e.Value]; ok {
			return nil, fmt.Errorf("enum %s: tag 0x%X used by %s and %s", name, uint64(e.Value), prev, e.Name)
		}
		if _, ok := t.values[e.Name]; ok {
			return nil, fmt.Errorf("enum %s: duplicate name %s", name, e.Name)
		}
		t.names[e.Value] = e.Name
		t.values[e.Name] = e.Value
		t.order = append(t.order, e.Value)
	}
	return t, nil
}

// MustTable is like NewTable but panics on an invalid table. It is meant
// for package-level tables built from literals.
func MustTable[T Tag](name string, width uint8, entries ...Entry[T]) *Table[T] {
	t, err := NewTable(name, width, entries...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the table name.
func (t *Table[T]) Name() string { return t.name }

// Width returns the tag width in bits.
func (t *Table[T]) Width() uint8 { return t.width }

// Lookup maps a raw tag to its value.
func (t *Table[T]) Lookup(tag uint64) (T, bool) {
	if tag>>t.width != 0 {
		return 0, false
	}
	v := T(tag)
	_, ok := t.names[v]
	return v, ok
}

// Contains reports whether v is a mapped value.
func (t *Table[T]) Contains(v T) bool {
	_, ok := t.names[v]
	return ok
}

// String returns the symbolic name of v, or a placeholder for unmapped values.
func (t *Table[T]) String(v T) string {
	if name, ok := t.names[v]; ok {
		return name
	}
	return fmt.Sprintf("%s(0x%02X)", t.name, uint64(v))
}

// ByName returns the value registered under name.
func (t *Table[T]) ByName(name string) (T, bool) {
	v, ok := t.values[name]
	return v, ok
}

// Values returns all mapped values in registration order.
func (t *Table[T]) Values() []T {
	out := make([]T, len(t.order))
	copy(out, t.order)
	return out
}

// Read reads a tag and maps it, failing with *UnknownError when unmapped.
func (t *Table[T]) Read(r *wire.Reader) (T, error) {
	tag, err := r.ReadUint(t.width)
	if err != nil {
		return 0, err
	}
	v, ok := t.Lookup(tag)
	if !ok {
		return 0, &UnknownError{Enum: t.name, Tag: tag}
	}
	return v, nil
}

// Write writes a mapped value as a tag of the table's width.
func (t *Table[T]) Write(w *wire.Writer, v T) error {
	if !t.Contains(v) {
		return &UnknownError{Enum: t.name, Tag: uint64(v)}
	}
	return w.WriteUint(uint64(v), t.width)
}

// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package enum

import (
	"fmt"
	"strings"
)

// Relation is an acyclic derives-from relation over the values of a Table.
// Every value has at most one base value.
type Relation[T Tag] struct {
	table *Table[T]
	base  map[T]T
}

// Derivation states that Value derives from Base.
type Derivation[T Tag] struct {
	Value T
	Base  T
}

// NewRelation validates that every derivation names mapped values, that no
// value has two bases and that following bases never revisits a value.
func NewRelation[T Tag](table *Table[T], derivations ...Derivation[T]) (*Relation[T], error) {
	rel := &Relation[T]{table: table, base: make(map[T]T, len(derivations))}
	for _, d := range derivations {
		if !table.Contains(d.Value) || !table.Contains(d.Base) {
			return nil, fmt.Errorf("enum %s: derivation %s -> %s uses an unmapped value",
				table.name, table.String(d.Value), table.String(d.Base))
		}
		if _, ok := rel.base[d.Value]; ok {
			return nil, fmt.Errorf("enum %s: %s has more than one base", table.name, table.String(d.Value))
		}
		rel.base[d.Value] = d.Base
	}
	for _, v := range table.order {
		seen := map[T]bool{v: true}
		path := []string{table.String(v)}
		for cur, ok := rel.base[v]; ok; cur, ok = rel.base[cur] {
			path = append(path, table.String(cur))
			if seen[cur] {
				return nil, fmt.Errorf("enum %s: derivation cycle %s", table.name, strings.Join(path, " -> "))
			}
			seen[cur] = true
		}
	}
	return rel, nil
}

// MustRelation is like NewRelation but panics on an invalid relation.
func MustRelation[T Tag](table *Table[T], derivations ...Derivation[T]) *Relation[T] {
	rel, err := NewRelation(table, derivations...)
	if err != nil {
		panic(err)
	}
	return rel
}

// Base returns the value v directly derives from.
func (r *Relation[T]) Base(v T) (T, bool) {
	b, ok := r.base[v]
	return b, ok
}

// Ancestors returns the chain of bases of v, nearest first.
func (r *Relation[T]) Ancestors(v T) []T {
	var out []T
	for cur, ok := r.base[v]; ok; cur, ok = r.base[cur] {
		out = append(out, cur)
	}
	return out
}

// Root returns the last ancestor of v, or v itself when it has no base.
func (r *Relation[T]) Root(v T) T {
	for b, ok := r.base[v]; ok; b, ok = r.base[v] {
		v = b
	}
	return v
}

// DerivesFrom reports whether base appears among the ancestors of v.
func (r *Relation[T]) DerivesFrom(v, base T) bool {
	for cur, ok := r.base[v]; ok; cur, ok = r.base[cur] {
		if cur == base {
			return true
		}
	}
	return false
}

package store

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"sort"
)

// Tree is an immutable state tree of named slices. A nil *Tree is an empty
// tree.
type Tree struct {
	slices map[string]any
}

// NewTree builds a tree from a copy of values.
func NewTree(values map[string]any) *Tree {
	t := &Tree{slices: make(map[string]any, len(values))}
	for k, v := range values {
		t.slices[k] = v
	}
	return t
}

// Get returns the value of slice name, or nil.
func (t *Tree) Get(name string) any {
	if t == nil {
		return nil
	}
	return t.slices[name]
}

// Names returns the slice names in sorted order.
func (t *Tree) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.slices))
	for k := range t.slices {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// With returns a copy of the tree with slice name set to value.
func (t *Tree) With(name string, value any) *Tree {
	next := &Tree{slices: make(map[string]any, len(t.Names())+1)}
	if t != nil {
		for k, v := range t.slices {
			next.slices[k] = v
		}
	}
	next.slices[name] = value
	return next
}

// LogValue implements slog.LogValuer.
func (t *Tree) LogValue() slog.Value {
	names := t.Names()
	attrs := make([]slog.Attr, 0, len(names))
	for _, name := range names {
		attrs = append(attrs, slog.String(name, fmt.Sprintf("%+v", t.slices[name])))
	}
	return slog.GroupValue(attrs...)
}

// Select returns slice name of t as T, or the zero T.
func Select[T any](t *Tree, name string) T {
	v, _ := t.Get(name).(T)
	return v
}

// Slice adapts a typed slice reducer to the untyped form CombineReducers
// expects. A missing slice is passed as the zero T, which reducers treat as
// a request for their initial state.
func Slice[T any](reduce func(state T, action Action) T) Reducer[any] {
	return func(state any, action Action) any {
		typed, _ := state.(T)
		return reduce(typed, action)
	}
}

// CombineReducers merges per-slice reducers into one reducer over a Tree.
// Each slice reducer sees only its own slice. When no slice changes by
// reference the original tree is returned.
func CombineReducers(reducers map[string]Reducer[any]) Reducer[*Tree] {
	names := make([]string, 0, len(reducers))
	for name, r := range reducers {
		if r == nil {
			panic(fmt.Sprintf("store: nil reducer for slice %q", name))
		}
		names = append(names, name)
	}
	slices.Sort(names)

	// Copy so later mutation of the caller's map has no effect.
	table := make(map[string]Reducer[any], len(reducers))
	for name, r := range reducers {
		table[name] = r
	}

	return func(state *Tree, action Action) *Tree {
		changed := state == nil
		next := make(map[string]any, len(names))
		for _, name := range names {
			prev := state.Get(name)
			value := table[name](prev, action)
			next[name] = value
			if !sameValue(prev, value) {
				changed = true
			}
		}
		if !changed {
			return state
		}
		return &Tree{slices: next}
	}
}

// sameValue compares by identity for reference kinds and by value for the
// rest.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch va.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if ta.Comparable() {
		return a == b
	}
	return false
}

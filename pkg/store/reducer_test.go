package store_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/nanacaring/cmsportal/pkg/store"
)

type label struct{ text string }

type setLabel struct{ text string }

func (setLabel) ActionType() string { return "SET_LABEL" }

func reduceLabel(s *label, a store.Action) *label {
	if s == nil {
		s = &label{}
	}
	if a, ok := a.(setLabel); ok && a.text != s.text {
		return &label{text: a.text}
	}
	return s
}

func newRoot() store.Reducer[*store.Tree] {
	return store.CombineReducers(map[string]store.Reducer[any]{
		"counter": store.Slice(reduceCounter),
		"label":   store.Slice(reduceLabel),
	})
}

func TestCombineReducersInstallsInitialSlices(t *testing.T) {
	root := newRoot()
	tree := root(nil, unknown{})
	if tree == nil {
		t.Fatal("expected a tree from a nil state")
	}
	if store.Select[*counter](tree, "counter") == nil || store.Select[*label](tree, "label") == nil {
		t.Error("expected every slice to be initialised")
	}
	names := tree.Names()
	if len(names) != 2 || names[0] != "counter" || names[1] != "label" {
		t.Errorf("unexpected names %v", names)
	}
}

func TestCombineReducersShortCircuits(t *testing.T) {
	root := newRoot()
	tree := root(nil, unknown{})

	if got := root(tree, unknown{}); got != tree {
		t.Error("expected unknown action to return the same tree")
	}
	// An action that a reducer handles without changing anything.
	tree = root(tree, setLabel{text: "x"})
	if got := root(tree, setLabel{text: "x"}); got != tree {
		t.Error("expected no-op update to return the same tree")
	}
}

func TestCombineReducersReplacesOnlyChangedSlice(t *testing.T) {
	root := newRoot()
	tree := root(nil, unknown{})
	prevCounter := store.Select[*counter](tree, "counter")
	prevLabel := store.Select[*label](tree, "label")

	next := root(tree, increment{by: 1})
	if next == tree {
		t.Fatal("expected a new tree after a change")
	}
	if store.Select[*counter](next, "counter") == prevCounter {
		t.Error("expected counter slice to be replaced")
	}
	if store.Select[*label](next, "label") != prevLabel {
		t.Error("expected label slice to keep its reference")
	}
	if store.Select[*counter](tree, "counter").n != 0 {
		t.Error("expected previous tree to stay untouched")
	}
}

func TestCombineReducersInStore(t *testing.T) {
	st := store.New(newRoot(), nil, store.ThunkMiddleware[*store.Tree]())
	st.Dispatch(context.Background(), setLabel{text: "hello"})
	if got := store.Select[*label](st.GetState(), "label").text; got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}
}

func TestCombineReducersNilReducerPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for nil slice reducer")
		}
	}()
	store.CombineReducers(map[string]store.Reducer[any]{"x": nil})
}

func TestSelectMissingSlice(t *testing.T) {
	var tree *store.Tree
	if store.Select[*label](tree, "label") != nil {
		t.Error("expected nil for missing slice on nil tree")
	}
	tree = store.NewTree(map[string]any{"label": "not a label"})
	if store.Select[*label](tree, "label") != nil {
		t.Error("expected zero value for mismatched type")
	}
}

func TestTreeWith(t *testing.T) {
	tree := store.NewTree(map[string]any{"a": 1})
	next := tree.With("b", 2)
	if tree.Get("b") != nil {
		t.Error("expected With to leave the original tree untouched")
	}
	if next.Get("a") != 1 || next.Get("b") != 2 {
		t.Errorf("unexpected tree %v", next.Names())
	}
}

func TestTreeLogValue(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Info("state", "tree", store.NewTree(map[string]any{"theme": "dark"}))
	if !strings.Contains(buf.String(), "tree.theme=dark") {
		t.Errorf("expected grouped slice output, got %q", buf.String())
	}
}

func TestLoggerMiddleware(t *testing.T) {
	t.Run("enabled logs before and after", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		st := newCounterStore(store.ThunkMiddleware[*counter](), store.LoggerMiddleware[*counter](logger, true))

		st.Dispatch(context.Background(), increment{by: 1})
		st.Dispatch(context.Background(), store.Thunk[*counter](func(context.Context, store.Dispatch, func() *counter) store.Result {
			return store.Success(nil)
		}))

		out := buf.String()
		if strings.Count(out, "action dispatch") != 1 || strings.Count(out, "action reduced") != 1 {
			t.Errorf("expected one before/after pair, got %q", out)
		}
		if strings.Contains(out, store.ThunkType) {
			t.Error("expected thunks not to be logged")
		}
	})

	t.Run("disabled is a pass-through", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		st := newCounterStore(store.LoggerMiddleware[*counter](logger, false))
		st.Dispatch(context.Background(), increment{by: 1})
		if buf.Len() != 0 {
			t.Errorf("expected no output, got %q", buf.String())
		}
		if st.GetState().n != 1 {
			t.Errorf("expected action to still be reduced")
		}
	})
}

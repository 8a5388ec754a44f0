package vfskit

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-multierror"
)

type recorder struct {
	BaseComponent
	name     string
	log      *[]string
	initErr  error
	closeErr error
}

func (r *recorder) Init(context.Context) error {
	*r.log = append(*r.log, "init "+r.name)
	return r.initErr
}

func (r *recorder) Close() error {
	*r.log = append(*r.log, "close "+r.name)
	return r.closeErr
}

// plainCloser is an io.Closer that is not a Component.
type plainCloser struct {
	log *[]string
	err error
}

func (c *plainCloser) Close() error {
	*c.log = append(*c.log, "close plain")
	return c.err
}

func TestContainerLifecycle(t *testing.T) {
	ctx := context.Background()
	owner := NewManager()
	var c Container
	c.SetContext(owner)

	var log []string
	a := &recorder{name: "a", log: &log}
	b := &recorder{name: "b", log: &log}
	plain := &plainCloser{log: &log}
	for _, comp := range []any{a, plain, b, a, "not a component"} {
		if err := c.AddComponent(ctx, comp); err != nil {
			t.Fatalf("AddComponent() error = %v", err)
		}
	}
	if a.Context() != owner {
		t.Error("component did not receive the container context")
	}

	failing := &recorder{name: "bad", log: &log, initErr: errors.New("no")}
	if err := c.AddComponent(ctx, failing); err == nil {
		t.Error("AddComponent() ignored an Init error")
	}
	if got := len(c.Components()); got != 4 {
		t.Errorf("Components() has %d entries, want 4", got)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	want := []string{"init a", "init b", "init bad", "close b", "close plain", "close a"}
	if diff := cmp.Diff(want, log); diff != "" {
		t.Errorf("lifecycle mismatch (-want +got):\n%s", diff)
	}
	if len(c.Components()) != 0 {
		t.Error("Close() kept components")
	}
}

func TestContainerRemoveComponent(t *testing.T) {
	ctx := context.Background()
	var c Container
	var log []string
	a := &recorder{name: "a", log: &log}
	if err := c.AddComponent(ctx, a); err != nil {
		t.Fatalf("AddComponent() error = %v", err)
	}
	c.RemoveComponent(a)
	c.RemoveComponent(a)
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if diff := cmp.Diff([]string{"init a"}, log); diff != "" {
		t.Errorf("removed component was closed (-want +got):\n%s", diff)
	}
}

func TestContainerCloseErrors(t *testing.T) {
	ctx := context.Background()
	var c Container
	var log []string
	first := errors.New("first")
	second := errors.New("second")
	for _, comp := range []any{
		&recorder{name: "a", log: &log, closeErr: first},
		&recorder{name: "b", log: &log},
		&plainCloser{log: &log, err: second},
	} {
		if err := c.AddComponent(ctx, comp); err != nil {
			t.Fatalf("AddComponent() error = %v", err)
		}
	}

	err := c.Close()
	var merr *multierror.Error
	if !errors.As(err, &merr) || len(merr.Errors) != 2 {
		t.Fatalf("Close() error = %v, want both failures", err)
	}
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Errorf("Close() error = %v", err)
	}
	if len(log) != 5 {
		t.Errorf("a failing Close stopped the others: %v", log)
	}
}

func TestBaseComponentLogger(t *testing.T) {
	var c BaseComponent
	if c.Context() != nil {
		t.Fatal("zero component has a context")
	}
	if c.Logger() != slog.Default() {
		t.Error("Logger() without a context is not slog.Default")
	}

	l := slog.New(slog.DiscardHandler)
	c.SetContext(NewManager(WithLogger(l)))
	if c.Logger() != l {
		t.Error("Logger() ignored the context logger")
	}
}

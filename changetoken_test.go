package vfskit

import "testing"

func TestCallbackChangeToken(t *testing.T) {
	tok := NewCallbackChangeToken()
	var calls []string
	tok.RegisterChangeCallback(func() { calls = append(calls, "a") })
	unregister := tok.RegisterChangeCallback(func() { calls = append(calls, "b") })
	unregister()

	if tok.HasChanged() {
		t.Fatal("HasChanged() before SignalChange")
	}
	tok.SignalChange()
	tok.SignalChange()
	if !tok.HasChanged() {
		t.Error("HasChanged() = false after SignalChange")
	}
	if len(calls) != 1 || calls[0] != "a" {
		t.Errorf("callbacks = %v, want [a]", calls)
	}

	late := false
	tok.RegisterChangeCallback(func() { late = true })()
	if !late {
		t.Error("callback registered after the change did not run")
	}
}

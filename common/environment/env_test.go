package environment_test

import (
	"testing"

	"github.com/astralab/astra/common/environment"
)

func TestStringOr(t *testing.T) {
	t.Setenv("TEST_STRING", "hello")
	if got := environment.StringOr("TEST_STRING", "default"); got != "hello" {
		t.Errorf("expected %q, got %q", "hello", got)
	}
	if got := environment.StringOr("TEST_STRING_MISSING", "default"); got != "default" {
		t.Errorf("expected %q, got %q", "default", got)
	}
}

func TestIntOr(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	if got := environment.IntOr("TEST_INT", 0); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := environment.IntOr("TEST_INT_MISSING", 99); got != 99 {
		t.Errorf("expected 99, got %d", got)
	}
	t.Setenv("TEST_INT_BAD", "notanint")
	if got := environment.IntOr("TEST_INT_BAD", 7); got != 7 {
		t.Errorf("expected default 7 for bad value, got %d", got)
	}
}

func TestBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	v, set, err := environment.Bool("TEST_BOOL")
	if err != nil || !set || !v {
		t.Errorf("Bool = (%v, %v, %v)", v, set, err)
	}

	if _, set, err := environment.Bool("TEST_BOOL_MISSING"); set || err != nil {
		t.Errorf("unset variable: set=%v err=%v", set, err)
	}

	t.Setenv("TEST_BOOL_BAD", "maybe")
	if _, set, err := environment.Bool("TEST_BOOL_BAD"); !set || err == nil {
		t.Error("unparsable value must report set with an error")
	}
}

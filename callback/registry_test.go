package callback

import (
	"context"
	"errors"
	"testing"
)

func TestRegistryAllMustPass(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()
	r.Register("eq", func(_ context.Context, args []string) (bool, error) {
		return len(args) == 2 && args[0] == args[1], nil
	})

	if ok, err := r.Validate(ctx, []Callback{New("eq", "a", "a")}); err != nil || !ok {
		t.Fatalf("expected pass, ok=%v err=%v", ok, err)
	}
	if ok, err := r.Validate(ctx, []Callback{New("eq", "a", "a"), New("eq", "a", "b")}); err != nil || ok {
		t.Fatalf("expected fail on second callback, ok=%v err=%v", ok, err)
	}
	if ok, err := r.Validate(ctx, nil); err != nil || !ok {
		t.Fatalf("no callbacks should pass, ok=%v err=%v", ok, err)
	}
}

func TestRegistryUnknownNameFails(t *testing.T) {
	r := NewRegistry()
	ok, err := r.Validate(context.Background(), []Callback{New("missing")})
	if err != nil || ok {
		t.Fatalf("unknown callback must fail without error, ok=%v err=%v", ok, err)
	}
}

func TestRegistryErrorIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry()
	r.Register("bad", func(context.Context, []string) (bool, error) { return false, boom })
	_, err := r.Validate(context.Background(), []Callback{New("bad")})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
}

func TestValidatorFunc(t *testing.T) {
	var seen []Callback
	v := ValidatorFunc(func(_ context.Context, cbs []Callback) (bool, error) {
		seen = cbs
		return true, nil
	})
	if ok, _ := v.Validate(context.Background(), []Callback{New("x", "1")}); !ok {
		t.Fatalf("ValidatorFunc result not forwarded")
	}
	if len(seen) != 1 || seen[0].Name != "x" || seen[0].Args[0] != "1" {
		t.Fatalf("callbacks not forwarded: %v", seen)
	}
}

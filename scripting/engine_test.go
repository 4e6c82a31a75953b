package scripting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dop251/goja"
)

func TestEngineExecute(t *testing.T) {
	e := NewEngine()
	val, err := e.Execute(context.Background(), "6 * 7")
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := val.(int64); !ok || got != 42 {
		t.Errorf("got %v (%T)", val, val)
	}
}

func TestEngineStatePersistsAcrossCalls(t *testing.T) {
	e := NewEngine()
	if _, err := e.Execute(context.Background(), "var x = 10"); err != nil {
		t.Fatal(err)
	}
	val, err := e.Execute(context.Background(), "x + 1")
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := val.(int64); got != 11 {
		t.Errorf("got %v", val)
	}
}

func TestEngineCanceledContext(t *testing.T) {
	e := NewEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Execute(ctx, "1"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestEngineInterruptsRunawayScript(t *testing.T) {
	e := NewEngine()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := e.Execute(ctx, "for(;;) {}")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}
}

func TestEngineCall(t *testing.T) {
	e := NewEngine()
	if _, err := e.Execute(context.Background(), "function f(x) { return x + 1 }"); err != nil {
		t.Fatal(err)
	}
	fn, ok := goja.AssertFunction(e.vm.Get("f"))
	if !ok {
		t.Fatal("f is not callable")
	}
	val, err := e.Call(context.Background(), fn, e.vm.ToValue(41))
	if err != nil {
		t.Fatal(err)
	}
	if val.ToInteger() != 42 {
		t.Errorf("got %v", val)
	}
}

func TestEngineCallInterruptsRunawayFunction(t *testing.T) {
	e := NewEngine()
	if _, err := e.Execute(context.Background(), "function spin() { for(;;) {} }"); err != nil {
		t.Fatal(err)
	}
	fn, ok := goja.AssertFunction(e.vm.Get("spin"))
	if !ok {
		t.Fatal("spin is not callable")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := e.Call(ctx, fn); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}
}

func TestEngineScriptError(t *testing.T) {
	e := NewEngine()
	if _, err := e.Execute(context.Background(), "throw new Error('boom')"); err == nil {
		t.Error("expected script error")
	}
}

package lua

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/picorope/internal/engine/rope"
)

func newTestState(t *testing.T, opts ...StateOption) *State {
	t.Helper()
	state, err := NewState(opts...)
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	t.Cleanup(func() { _ = state.Close() })
	return state
}

func TestNewState(t *testing.T) {
	state := newTestState(t)

	if state.IsClosed() {
		t.Error("NewState() returned closed state")
	}
	if state.GetGlobal(ModuleName).Type() != glua.LTTable {
		t.Error("rope module should be a global table")
	}
}

func TestStateDoString(t *testing.T) {
	state := newTestState(t)

	if err := state.DoString(context.Background(), `x = 1 + 1`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if v := state.GetGlobal("x"); v.String() != "2" {
		t.Errorf("x = %v, want 2", v)
	}
}

func TestStateDoStringSyntaxError(t *testing.T) {
	state := newTestState(t)

	if err := state.DoString(context.Background(), `x = = 1`); err == nil {
		t.Error("DoString() should fail on syntax error")
	}
}

func TestStateDoStringRuntimeErrorKeepsStack(t *testing.T) {
	state := newTestState(t)
	top := state.L.GetTop()

	if err := state.DoString(context.Background(), `error("boom")`); err == nil {
		t.Error("DoString() should return the runtime error")
	}
	if state.L.GetTop() != top {
		t.Errorf("stack top = %d, want %d", state.L.GetTop(), top)
	}
}

func TestStateCall(t *testing.T) {
	state := newTestState(t)
	ctx := context.Background()

	err := state.DoString(ctx, `
		function greet(name)
			return rope.new("hello, ") .. name, 2
		end
	`)
	if err != nil {
		t.Fatal(err)
	}

	results, err := state.Call(ctx, "greet", glua.LString("lua"))
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Call() returned %d values, want 2", len(results))
	}
	if got := state.L.ToStringMeta(results[0]).String(); got != "hello, lua" {
		t.Errorf("result = %q", got)
	}

	if _, err := state.Call(ctx, "missing"); err == nil {
		t.Error("Call() of undefined function should fail")
	}
}

func TestStateGlobals(t *testing.T) {
	state := newTestState(t, WithGlobals(map[string]string{"name": "world"}))

	state.SetGlobal("greeting", glua.LString("hi"))
	r, err := state.Render(context.Background(), "globals", `return greeting .. " " .. name`)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Release()

	if r.String() != "hi world" {
		t.Errorf("got %q", r.String())
	}
}

func TestStateExecutionTimeout(t *testing.T) {
	state := newTestState(t, WithExecutionTimeout(50*time.Millisecond))

	err := state.DoString(context.Background(), `while true do end`)
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Errorf("err = %v, want ErrExecutionTimeout", err)
	}

	// The state stays usable after a timeout.
	if err := state.DoString(context.Background(), `y = 1`); err != nil {
		t.Errorf("DoString() after timeout error = %v", err)
	}
}

func TestStateContextCanceled(t *testing.T) {
	state := newTestState(t, WithExecutionTimeout(0))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := state.DoString(ctx, `while true do end`)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestStateOperationLimit(t *testing.T) {
	state := newTestState(t, WithOperationLimit(10))

	err := state.DoString(context.Background(), `
		local r = rope.new()
		for i = 1, 100 do r = r .. "x" end
	`)
	if !errors.Is(err, ErrOperationLimit) {
		t.Errorf("err = %v, want ErrOperationLimit", err)
	}

	// The counter resets for the next execution.
	if err := state.DoString(context.Background(), `local r = rope.new("ok")`); err != nil {
		t.Errorf("DoString() after limit error = %v", err)
	}
}

func TestStateCloseReleasesRopes(t *testing.T) {
	pool := rope.NewPool(rope.WithRecycling(false))
	state, err := NewState(WithPool(pool))
	if err != nil {
		t.Fatal(err)
	}

	err = state.DoString(context.Background(), `
		local parts = {}
		for i = 1, 50 do parts[#parts + 1] = rope.new(tostring(i)) end
		local all = rope.join(parts, ",")
		local s = all:sub(1, 10) .. all:sub(20) .. rope.rep("ab", 8)
		local _ = s:text()
	`)
	if err != nil {
		t.Fatal(err)
	}
	if state.LiveRopes() == 0 {
		t.Fatal("scripts should have created ropes")
	}
	if pool.Stats().LiveNodes() == 0 {
		t.Fatal("expected live nodes before Close")
	}

	if err := state.Close(); err != nil {
		t.Fatal(err)
	}
	if st := pool.Stats(); st.LiveNodes() != 0 || st.LiveBuffers() != 0 {
		t.Errorf("Close leaked ropes: %+v", st)
	}
	if err := state.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestStateClosedOperations(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	_ = state.Close()

	ctx := context.Background()
	if err := state.DoString(ctx, `x = 1`); !errors.Is(err, ErrStateClosed) {
		t.Errorf("DoString() after Close = %v, want ErrStateClosed", err)
	}
	if _, err := state.Call(ctx, "f"); !errors.Is(err, ErrStateClosed) {
		t.Errorf("Call() after Close = %v, want ErrStateClosed", err)
	}
	if _, err := state.Render(ctx, "x", `return "x"`); !errors.Is(err, ErrStateClosed) {
		t.Errorf("Render() after Close = %v, want ErrStateClosed", err)
	}
	if state.GetGlobal("x") != glua.LNil {
		t.Error("GetGlobal() after Close should return LNil")
	}
}

func TestStatePrintOutput(t *testing.T) {
	var out bytes.Buffer
	state := newTestState(t, WithOutput(&out))

	if err := state.DoString(context.Background(), `print("a", 1, rope.new("r"))`); err != nil {
		t.Fatal(err)
	}
	if out.String() != "a\t1\tr\n" {
		t.Errorf("print wrote %q", out.String())
	}
}

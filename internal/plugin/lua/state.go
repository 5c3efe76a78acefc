package lua

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/picorope/internal/engine/rope"
)

// Default limits for Lua state.
const (
	DefaultExecutionTimeout = 5 * time.Second // Wall-clock limit per execution
	DefaultOperationLimit   = 1_000_000       // Rope module calls per execution
	DefaultMaxLength        = 64 << 20        // Longest rope a script may build
)

// State wraps gopher-lua with a sandbox and the rope module.
//
// IMPORTANT: gopher-lua's LState is not goroutine-safe. The mutex in this
// struct serializes calls made through State, but ropes handed out by the
// State share the same single-goroutine rule as any other rope.
type State struct {
	L *lua.LState

	mu sync.Mutex

	// Configuration
	executionTimeout time.Duration
	operationLimit   int64
	maxLength        int
	pool             *rope.Pool
	output           io.Writer
	globals          map[string]string
	logger           *slog.Logger

	sandbox *Sandbox
	module  *ropeModule
	bridge  *Bridge

	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the wall-clock limit for each execution.
// Zero disables the limit; the caller's context still applies.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// WithOperationLimit sets the maximum rope module calls per execution.
func WithOperationLimit(limit int64) StateOption {
	return func(s *State) {
		s.operationLimit = limit
	}
}

// WithMaxLength sets the longest rope, in bytes, a script may build.
// Zero or less removes the limit.
func WithMaxLength(n int) StateOption {
	return func(s *State) {
		s.maxLength = n
	}
}

// WithPool sets the pool ropes are allocated from.
func WithPool(p *rope.Pool) StateOption {
	return func(s *State) {
		if p != nil {
			s.pool = p
		}
	}
}

// WithOutput sets where print writes.
func WithOutput(w io.Writer) StateOption {
	return func(s *State) {
		s.output = w
	}
}

// WithGlobals defines string globals visible to scripts.
func WithGlobals(vars map[string]string) StateOption {
	return func(s *State) {
		s.globals = vars
	}
}

// WithLogger sets the logger for execution diagnostics.
func WithLogger(logger *slog.Logger) StateOption {
	return func(s *State) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewState creates a new sandboxed Lua state with the rope module loaded.
func NewState(opts ...StateOption) (*State, error) {
	state := &State{
		executionTimeout: DefaultExecutionTimeout,
		operationLimit:   DefaultOperationLimit,
		maxLength:        DefaultMaxLength,
		pool:             rope.DefaultPool,
		logger:           slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(state)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true, // We'll open selectively
	})
	state.L = L

	openSafeLibraries(L)

	state.sandbox = NewSandbox(L, state.operationLimit, state.output)
	state.module = newRopeModule(state.pool, state.sandbox, state.maxLength)
	state.bridge = NewBridge(state.pool)
	state.bridge.SetMaxLength(state.maxLength)

	// The rope module must be registered before require is replaced.
	state.module.install(L)
	state.sandbox.Install()

	names := make([]string, 0, len(state.globals))
	for name := range state.globals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		L.SetGlobal(name, lua.LString(state.globals[name]))
	}

	return state, nil
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	// Note: These are intentionally NOT opened:
	// - io (file system access)
	// - os (system calls, execute)
	// - debug (can bypass sandbox)
}

// DoFile executes a Lua file.
func (s *State) DoFile(ctx context.Context, path string) error {
	_, err := s.exec(ctx, path, func() (*lua.LFunction, error) {
		return s.L.LoadFile(path)
	})
	return err
}

// DoString executes a Lua string.
func (s *State) DoString(ctx context.Context, code string) error {
	_, err := s.exec(ctx, "<string>", func() (*lua.LFunction, error) {
		return s.L.LoadString(code)
	})
	return err
}

// exec compiles a chunk with load and runs it, returning every value the
// chunk returns. Execution is synchronous.
func (s *State) exec(ctx context.Context, name string, load func() (*lua.LFunction, error)) ([]lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	fn, err := load()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return s.call(ctx, name, fn)
}

// call runs fn with the execution limits applied. s.mu must be held.
func (s *State) call(ctx context.Context, name string, fn *lua.LFunction, args ...lua.LValue) (results []lua.LValue, err error) {
	if s.executionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.executionTimeout)
		defer cancel()
	}
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	s.sandbox.ResetOperations()
	s.module.lengthExceeded = false
	start := time.Now()

	stackTop := s.L.GetTop()
	s.L.Push(fn)
	for _, arg := range args {
		s.L.Push(arg)
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("lua panic: %v", r)
			}
		}()
		err = s.L.PCall(len(args), lua.MultRet, nil)
	}()

	s.logger.Debug("lua executed",
		slog.String("chunk", name),
		slog.Duration("elapsed", time.Since(start)),
		slog.Int64("operations", s.sandbox.Operations()))

	if err != nil {
		s.L.SetTop(stackTop)
		switch {
		case s.sandbox.Exceeded():
			return nil, fmt.Errorf("%s: %w", name, ErrOperationLimit)
		case s.module.lengthExceeded:
			return nil, fmt.Errorf("%s: %w", name, ErrLengthLimit)
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, fmt.Errorf("%s: %w", name, ErrExecutionTimeout)
		case ctx.Err() != nil:
			return nil, fmt.Errorf("%s: %w", name, ctx.Err())
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	nRet := s.L.GetTop() - stackTop
	results = make([]lua.LValue, 0, max(nRet, 0))
	for i := 1; i <= nRet; i++ {
		results = append(results, s.L.Get(stackTop+i))
	}
	s.L.SetTop(stackTop)
	return results, nil
}

// Call calls a global Lua function with the given arguments.
// Returns an empty slice (not nil) if the function returns no values.
func (s *State) Call(ctx context.Context, fn string, args ...lua.LValue) ([]lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	fnVal, ok := s.L.GetGlobal(fn).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("%q is not a function (got %s)", fn, s.L.GetGlobal(fn).Type())
	}
	return s.call(ctx, fn, fnVal, args...)
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.SetGlobal(name, value)
}

// Sandbox returns the sandbox.
func (s *State) Sandbox() *Sandbox {
	return s.sandbox
}

// LiveRopes returns the number of ropes scripts have created that the
// State still owns.
func (s *State) LiveRopes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.module.owned)
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases every rope scripts created and the Lua state.
// After Close is called, all other methods will return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.module.releaseAll()
	s.L.Close()
	s.closed = true
	return nil
}

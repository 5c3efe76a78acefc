package lua

import (
	"io"
	"strings"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// Sandbox restricts Lua execution to safe operations.
type Sandbox struct {
	L *lua.LState

	// Operation limiting
	operationLimit int64
	operationCount int64
	exceeded       atomic.Bool

	output io.Writer
}

// safeModules may be loaded through require.
var safeModules = map[string]bool{
	"string":   true,
	"table":    true,
	"math":     true,
	ModuleName: true,
}

// NewSandbox creates a new sandbox for the Lua state. print output goes
// to output; a nil output discards it.
func NewSandbox(L *lua.LState, operationLimit int64, output io.Writer) *Sandbox {
	if output == nil {
		output = io.Discard
	}
	return &Sandbox{
		L:              L,
		operationLimit: operationLimit,
		output:         output,
	}
}

// Install sets up the sandbox restrictions.
func (s *Sandbox) Install() {
	// Functions that load code from disk or strings.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.installPrint()
	s.installSafeRequire()
}

// installPrint replaces print with a version writing to the sandbox output.
func (s *Sandbox) installPrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		var sb strings.Builder
		for i := 1; i <= L.GetTop(); i++ {
			if i > 1 {
				sb.WriteByte('\t')
			}
			sb.WriteString(L.ToStringMeta(L.Get(i)).String())
		}
		sb.WriteByte('\n')
		_, _ = io.WriteString(s.output, sb.String())
		return 0
	}))
}

// installSafeRequire clears the package search paths and replaces require
// with a version that only loads whitelisted modules.
func (s *Sandbox) installSafeRequire() {
	if pkg, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		s.L.SetField(pkg, "path", lua.LString(""))
		s.L.SetField(pkg, "cpath", lua.LString(""))
	}

	originalRequire := s.L.GetGlobal("require")
	if originalRequire == lua.LNil {
		return
	}

	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		modName := L.CheckString(1)
		if !safeModules[modName] {
			L.RaiseError("module %q is not available", modName)
			return 0
		}
		L.Push(originalRequire)
		L.Push(lua.LString(modName))
		L.Call(1, 1)
		return 1
	}))
}

// ResetOperations resets the operation counter.
func (s *Sandbox) ResetOperations() {
	atomic.StoreInt64(&s.operationCount, 0)
	s.exceeded.Store(false)
}

// Operations returns the current operation count.
func (s *Sandbox) Operations() int64 {
	return atomic.LoadInt64(&s.operationCount)
}

// Charge adds n to the operation count and returns true if the limit is
// now exceeded. A limit of zero or less disables counting.
func (s *Sandbox) Charge(n int64) bool {
	if s.operationLimit <= 0 {
		return false
	}
	if atomic.AddInt64(&s.operationCount, n) > s.operationLimit {
		s.exceeded.Store(true)
		return true
	}
	return false
}

// Exceeded reports whether the limit was hit since the last reset.
func (s *Sandbox) Exceeded() bool {
	return s.exceeded.Load()
}

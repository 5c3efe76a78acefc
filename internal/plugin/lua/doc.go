// Package lua runs Lua templates that build text with ropes.
//
// This package wraps the gopher-lua library to provide:
//   - Sandboxed Lua state management
//   - A "rope" module exposing immutable ropes to scripts
//   - Conversion of script results into ropes
//   - Execution timeouts and operation limits
//
// # State
//
// The State type manages a Lua runtime with sandboxing:
//
//	state, err := lua.NewState(
//	    lua.WithExecutionTimeout(5 * time.Second),
//	    lua.WithGlobals(map[string]string{"name": "world"}),
//	)
//	if err != nil {
//	    return err
//	}
//	defer state.Close()
//
//	r, err := state.Render(ctx, "hello.lua", `return rope.new("hello, ") .. name`)
//	if err != nil {
//	    return err
//	}
//	defer r.Release()
//
// # The rope module
//
// Scripts see a global "rope" table (also available through require):
//
//	local s = rope.new("abc") .. "def"   -- concatenation shares structure
//	print(#s, s:at(1), s:sub(3, 3))       -- 6  97  cde
//	local line = rope.join({"a", "b", s}, ", ")
//	local rule = rope.rep("-", 40)
//
// Positions are 1-based like Lua strings. Every rope a script creates is
// owned by the State and released when it is closed.
//
// # Sandbox
//
// The Sandbox restricts Lua code execution by:
//   - Opening only the base, package, string, table and math libraries
//   - Removing dofile, loadfile, load and loadstring
//   - Restricting require to the standard modules and "rope"
//   - Redirecting print to a configurable writer
//   - Counting rope operations against a limit
package lua

package lua

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/picorope/internal/engine/rope"
)

// Render runs a template chunk and returns its first result as a rope
// owned by the caller. name labels errors.
func (s *State) Render(ctx context.Context, name, code string) (*rope.Rope, error) {
	return s.render(ctx, name, func() (*lua.LFunction, error) {
		return s.L.LoadString(code)
	})
}

// RenderFile runs the template at path.
func (s *State) RenderFile(ctx context.Context, path string) (*rope.Rope, error) {
	return s.render(ctx, path, func() (*lua.LFunction, error) {
		return s.L.LoadFile(path)
	})
}

func (s *State) render(ctx context.Context, name string, load func() (*lua.LFunction, error)) (*rope.Rope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	fn, err := load()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	results, err := s.call(ctx, name, fn)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 || results[0] == lua.LNil {
		return nil, fmt.Errorf("%s: %w", name, ErrNoResult)
	}

	r, err := s.bridge.ToRope(results[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return r, nil
}

// RenderString renders code in a fresh State that is closed afterwards.
func RenderString(ctx context.Context, code string, opts ...StateOption) (*rope.Rope, error) {
	state, err := NewState(opts...)
	if err != nil {
		return nil, err
	}
	defer state.Close()
	return state.Render(ctx, "<string>", code)
}

// RenderFile renders the template at path in a fresh State that is
// closed afterwards.
func RenderFile(ctx context.Context, path string, opts ...StateOption) (*rope.Rope, error) {
	state, err := NewState(opts...)
	if err != nil {
		return nil, err
	}
	defer state.Close()
	return state.RenderFile(ctx, path)
}

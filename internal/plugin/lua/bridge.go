package lua

import (
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/picorope/internal/engine/rope"
)

// Bridge converts values returned by scripts into ropes.
type Bridge struct {
	pool      *rope.Pool
	maxLength int
}

// NewBridge creates a new Bridge allocating from pool.
func NewBridge(pool *rope.Pool) *Bridge {
	return &Bridge{pool: pool, maxLength: math.MaxInt}
}

// SetMaxLength bounds the length of converted values. Zero or less
// removes the bound.
func (b *Bridge) SetMaxLength(n int) {
	if n <= 0 {
		n = math.MaxInt
	}
	b.maxLength = n
}

// ToRope converts a Lua value to a rope owned by the caller.
//
// Strings, numbers and booleans become their text. A rope userdata is
// cloned, so the result outlives the State. A table is treated as a list
// whose items are converted in order and concatenated; nil converts to the
// empty rope.
func (b *Bridge) ToRope(lv lua.LValue) (*rope.Rope, error) {
	return b.toRopeWithVisited(lv, make(map[*lua.LTable]bool))
}

// toRopeWithVisited converts lv, tracking the tables on the current path.
func (b *Bridge) toRopeWithVisited(lv lua.LValue, visited map[*lua.LTable]bool) (*rope.Rope, error) {
	if lv == nil {
		return b.pool.New(), nil
	}

	switch v := lv.(type) {
	case *lua.LNilType:
		return b.pool.New(), nil
	case lua.LString:
		if len(v) > b.maxLength {
			return nil, fmt.Errorf("%w: string of %d bytes", ErrLengthLimit, len(v))
		}
		return b.pool.FromString(string(v)), nil
	case lua.LNumber, lua.LBool:
		return b.pool.FromString(v.String()), nil
	case *lua.LUserData:
		if r, ok := v.Value.(*rope.Rope); ok {
			return r.Clone(), nil
		}
		return nil, fmt.Errorf("cannot convert userdata %T to text", v.Value)
	case *lua.LTable:
		// A table may appear several times, but not inside itself.
		if visited[v] {
			return nil, ErrCycle
		}
		visited[v] = true
		defer delete(visited, v)
		return b.tableToRope(v, visited)
	default:
		return nil, fmt.Errorf("cannot convert %s to text", lv.Type())
	}
}

// tableToRope concatenates the list items of tbl.
func (b *Bridge) tableToRope(tbl *lua.LTable, visited map[*lua.LTable]bool) (*rope.Rope, error) {
	builder := b.pool.NewBuilder()
	for i := 1; i <= tbl.Len(); i++ {
		part, err := b.toRopeWithVisited(tbl.RawGetInt(i), visited)
		if err != nil {
			builder.Reset()
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if builder.Len() > b.maxLength-part.Len() {
			part.Release()
			builder.Reset()
			return nil, fmt.Errorf("item %d: %w", i, ErrLengthLimit)
		}
		builder.WriteRope(part)
		part.Release()
	}
	return builder.Build(), nil
}

package lua

import (
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/picorope/internal/engine/rope"
)

// ModuleName is the global and require name of the rope module.
const ModuleName = "rope"

// ropeTypeName keys the rope userdata metatable in the registry.
const ropeTypeName = "picorope.rope"

// ropeModule exposes ropes to Lua. gopher-lua has no userdata finalizers,
// so every rope handed to a script is recorded in owned and released
// when the State closes.
type ropeModule struct {
	pool    *rope.Pool
	sandbox *Sandbox
	owned   []*rope.Rope

	// maxLength bounds every rope a script builds; zero or less means
	// only the int range does.
	maxLength      int
	lengthExceeded bool
}

func newRopeModule(pool *rope.Pool, sandbox *Sandbox, maxLength int) *ropeModule {
	return &ropeModule{pool: pool, sandbox: sandbox, maxLength: maxLength}
}

// install registers the userdata metatable and the module table.
func (m *ropeModule) install(L *lua.LState) {
	mt := L.NewTypeMetatable(ropeTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"len":    m.length,
		"empty":  m.empty,
		"at":     m.at,
		"sub":    m.sub,
		"append": m.append,
		"text":   m.text,
		"depth":  m.depth,
		"leaves": m.leaves,
	}))
	L.SetFuncs(mt, map[string]lua.LGFunction{
		"__len":      m.length,
		"__concat":   m.concat,
		"__eq":       m.eq,
		"__lt":       m.lt,
		"__le":       m.le,
		"__tostring": m.text,
	})

	L.RegisterModule(ModuleName, map[string]lua.LGFunction{
		"new":  m.create,
		"join": m.join,
		"rep":  m.rep,
		"is":   m.is,
	})
}

// releaseAll drops every rope the module handed out.
func (m *ropeModule) releaseAll() {
	for _, r := range m.owned {
		r.Release()
	}
	m.owned = nil
}

// adopt records r as owned by the module and returns it.
func (m *ropeModule) adopt(r *rope.Rope) *rope.Rope {
	m.owned = append(m.owned, r)
	return r
}

// push wraps r in a userdata. r must already be owned by the module.
func (m *ropeModule) push(L *lua.LState, r *rope.Rope) int {
	ud := L.NewUserData()
	ud.Value = r
	L.SetMetatable(ud, L.GetTypeMetatable(ropeTypeName))
	L.Push(ud)
	return 1
}

// charge counts one operation, raising an error past the limit.
func (m *ropeModule) charge(L *lua.LState) {
	if m.sandbox.Charge(1) {
		L.RaiseError("%s", ErrOperationLimit.Error())
	}
}

// limit returns the longest rope a script may build.
func (m *ropeModule) limit() int {
	if m.maxLength <= 0 {
		return math.MaxInt
	}
	return m.maxLength
}

// fit raises an error unless a rope of a+b bytes is within the limit.
func (m *ropeModule) fit(L *lua.LState, a, b int) {
	if a > m.limit()-b {
		m.tooLong(L)
	}
}

func (m *ropeModule) tooLong(L *lua.LState) {
	m.lengthExceeded = true
	L.RaiseError("%s (%d bytes)", ErrLengthLimit.Error(), m.limit())
}

// check returns the rope at stack index n or raises an argument error.
func (m *ropeModule) check(L *lua.LState, n int) *rope.Rope {
	ud := L.CheckUserData(n)
	r, ok := ud.Value.(*rope.Rope)
	if !ok {
		L.ArgError(n, "rope expected")
		return nil
	}
	return r
}

// coerce returns the value at stack index n as a rope, converting strings
// and numbers.
func (m *ropeModule) coerce(L *lua.LState, n int) *rope.Rope {
	r, ok := m.value(L.Get(n))
	if !ok {
		L.ArgError(n, "rope or string expected, got "+L.Get(n).Type().String())
		return nil
	}
	return r
}

// value converts lv to a module-owned rope.
func (m *ropeModule) value(lv lua.LValue) (*rope.Rope, bool) {
	switch v := lv.(type) {
	case *lua.LUserData:
		r, ok := v.Value.(*rope.Rope)
		return r, ok
	case lua.LString, lua.LNumber:
		return m.adopt(m.pool.FromString(lua.LVAsString(v))), true
	default:
		return nil, false
	}
}

// create implements rope.new([x]).
func (m *ropeModule) create(L *lua.LState) int {
	m.charge(L)
	if L.GetTop() == 0 || L.Get(1) == lua.LNil {
		return m.push(L, m.adopt(m.pool.New()))
	}
	r := m.coerce(L, 1)
	m.fit(L, 0, r.Len())
	return m.push(L, r)
}

// join implements rope.join(list [, sep]).
func (m *ropeModule) join(L *lua.LState) int {
	m.charge(L)
	list := L.CheckTable(1)
	sep := L.OptString(2, "")

	parts := make([]*rope.Rope, 0, list.Len())
	total := 0
	for i := 1; i <= list.Len(); i++ {
		part, ok := m.value(list.RawGetInt(i))
		if !ok {
			L.ArgError(1, "list item "+lua.LNumber(i).String()+" is not a rope or string")
			return 0
		}
		if i > 1 {
			m.fit(L, total, len(sep))
			total += len(sep)
		}
		m.fit(L, total, part.Len())
		total += part.Len()
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return m.push(L, m.adopt(m.pool.New()))
	}
	return m.push(L, m.adopt(rope.Join(parts, sep)))
}

// rep implements rope.rep(s, n).
func (m *ropeModule) rep(L *lua.LState) int {
	m.charge(L)
	s := L.CheckString(1)
	n := L.CheckInt(2)
	if n > 0 && len(s) > 0 && n > m.limit()/len(s) {
		m.tooLong(L)
		return 0
	}
	return m.push(L, m.adopt(m.pool.Repeat(s, n)))
}

// is implements rope.is(x).
func (m *ropeModule) is(L *lua.LState) int {
	ud, ok := L.Get(1).(*lua.LUserData)
	if ok {
		_, ok = ud.Value.(*rope.Rope)
	}
	L.Push(lua.LBool(ok))
	return 1
}

func (m *ropeModule) length(L *lua.LState) int {
	L.Push(lua.LNumber(m.check(L, 1).Len()))
	return 1
}

func (m *ropeModule) empty(L *lua.LState) int {
	L.Push(lua.LBool(m.check(L, 1).Empty()))
	return 1
}

// at returns the byte at a 1-based position.
func (m *ropeModule) at(L *lua.LState) int {
	m.charge(L)
	r := m.check(L, 1)
	c, err := r.At(L.CheckInt(2) - 1)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(lua.LNumber(c))
	return 1
}

// sub returns n bytes from a 1-based position, or the rest of the rope
// when n is omitted.
func (m *ropeModule) sub(L *lua.LState) int {
	m.charge(L)
	r := m.check(L, 1)
	pos := L.CheckInt(2)
	n := L.OptInt(3, r.Len()-pos+1)

	sub, err := r.Substr(pos-1, n)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	return m.push(L, m.adopt(sub))
}

func (m *ropeModule) append(L *lua.LState) int {
	m.charge(L)
	r := m.check(L, 1)
	other := m.coerce(L, 2)
	m.fit(L, r.Len(), other.Len())
	return m.push(L, m.adopt(r.Append(other)))
}

func (m *ropeModule) concat(L *lua.LState) int {
	m.charge(L)
	left := m.coerce(L, 1)
	right := m.coerce(L, 2)
	m.fit(L, left.Len(), right.Len())
	return m.push(L, m.adopt(left.Append(right)))
}

func (m *ropeModule) text(L *lua.LState) int {
	m.charge(L)
	L.Push(lua.LString(m.check(L, 1).String()))
	return 1
}

func (m *ropeModule) depth(L *lua.LState) int {
	L.Push(lua.LNumber(m.check(L, 1).Depth()))
	return 1
}

func (m *ropeModule) leaves(L *lua.LState) int {
	L.Push(lua.LNumber(m.check(L, 1).LeafCount()))
	return 1
}

func (m *ropeModule) eq(L *lua.LState) int {
	m.charge(L)
	L.Push(lua.LBool(m.check(L, 1).Equal(m.check(L, 2))))
	return 1
}

func (m *ropeModule) lt(L *lua.LState) int {
	m.charge(L)
	L.Push(lua.LBool(m.check(L, 1).Compare(m.check(L, 2)) < 0))
	return 1
}

func (m *ropeModule) le(L *lua.LState) int {
	m.charge(L)
	L.Push(lua.LBool(m.check(L, 1).Compare(m.check(L, 2)) <= 0))
	return 1
}

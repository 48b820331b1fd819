package host

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"
)

// installBuiltins wires the host-provided script API into a bare
// interpreter: output redirection, the "scope" namespace and the "json"
// serialization module. Runs before any user bindings are replayed, so
// scripts may shadow any of it.
func (h *Host) installBuiltins(L *lua.LState) {
	L.SetGlobal("print", L.NewFunction(h.printTo(h.stdout)))
	L.SetGlobal("eprint", L.NewFunction(h.printTo(h.stderr)))

	scope := L.NewTable()
	L.SetFuncs(scope, map[string]lua.LGFunction{
		"echo": func(L *lua.LState) int {
			// Identity: returns its arguments unchanged.
			return L.GetTop()
		},
		"profiling_enabled": func(L *lua.LState) int {
			L.Push(lua.LBool(h.profiling.Load()))
			return 1
		},
		"now": func(L *lua.LState) int {
			L.Push(lua.LNumber(time.Now().Unix()))
			return 1
		},
		"uuid": func(L *lua.LState) int {
			L.Push(lua.LString(uuid.NewString()))
			return 1
		},
		"log": func(L *lua.LState) int {
			h.logger.Info(L.CheckString(1), "source", "script")
			return 0
		},
	})

	perf := L.NewTable()
	L.SetFuncs(perf, map[string]lua.LGFunction{
		"now_ms": func(L *lua.LState) int {
			L.Push(lua.LNumber(float64(time.Now().UnixNano()) / float64(time.Millisecond)))
			return 1
		},
		"fib": func(L *lua.LState) int {
			L.Push(lua.LNumber(fib(L.CheckInt(1))))
			return 1
		},
	})
	L.SetField(scope, "perf", perf)
	L.SetGlobal("scope", scope)

	// json.encode / json.decode; a decode failure raises a Lua error the
	// script can pcall, never a host crash.
	luajson.Preload(L)
}

// printTo renders arguments like Lua's print (tab separated, trailing
// newline, __tostring respected) into the given capture buffer.
func (h *Host) printTo(buf *Buffer) lua.LGFunction {
	return func(L *lua.LState) int {
		top := L.GetTop()
		parts := make([]string, 0, top)
		for i := 1; i <= top; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		fmt.Fprintln(buf, strings.Join(parts, "\t"))
		return 0
	}
}

// fib is the reference numeric benchmark exposed as scope.perf.fib.
// Deliberately naive recursion.
func fib(n int) int {
	if n < 2 {
		return n
	}
	return fib(n-1) + fib(n-2)
}

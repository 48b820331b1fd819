package host_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/lualab/luascope/pkg/host"
)

func TestExecuteExpression(t *testing.T) {
	h := host.New()
	defer h.Close()

	out, err := h.Execute("1 + 2")
	require.NoError(t, err)
	require.NotNil(t, out.ReturnValue)
	assert.Equal(t, "3", *out.ReturnValue)
	assert.Empty(t, out.Stderr)
}

func TestExecuteCapturesStdoutAndReturnValue(t *testing.T) {
	h := host.New()
	defer h.Close()

	out, err := h.Execute(`print("x") return 1`)
	require.NoError(t, err)
	assert.Equal(t, "x\n", out.Stdout)
	require.NotNil(t, out.ReturnValue)
	assert.Equal(t, "1", *out.ReturnValue)
}

func TestExecuteNilResult(t *testing.T) {
	h := host.New()
	defer h.Close()

	out, err := h.Execute("nil")
	require.NoError(t, err)
	assert.Nil(t, out.ReturnValue)

	out, err = h.Execute(`local x = 5`)
	require.NoError(t, err)
	assert.Nil(t, out.ReturnValue)
}

func TestExecuteErrorStillDrainsBuffers(t *testing.T) {
	h := host.New()
	defer h.Close()

	out, err := h.Execute(`print("partial") error("boom")`)
	require.Error(t, err)

	var scriptErr *host.ScriptError
	require.True(t, errors.As(err, &scriptErr))
	assert.Equal(t, "runtime", scriptErr.Stage)
	assert.Contains(t, scriptErr.Detail, "boom")

	require.NotNil(t, out)
	assert.Equal(t, "partial\n", out.Stdout)

	// The buffers were drained by the failed call.
	out, err = h.Execute("1")
	require.NoError(t, err)
	assert.Empty(t, out.Stdout)
}

func TestExecuteCompileError(t *testing.T) {
	h := host.New()
	defer h.Close()

	_, err := h.Execute("this is not lua (")
	var scriptErr *host.ScriptError
	require.True(t, errors.As(err, &scriptErr))
	assert.Equal(t, "compile", scriptErr.Stage)
}

func TestExecutionLimitAbortsAndRecovers(t *testing.T) {
	h := host.New()
	defer h.Close()

	_, err := h.ExecuteWithTimeout("while true do end", 50*time.Millisecond)
	require.Error(t, err)

	// The host rebuilds a usable interpreter after the deadline fired.
	out, err := h.Execute("1 + 2")
	require.NoError(t, err)
	require.NotNil(t, out.ReturnValue)
	assert.Equal(t, "3", *out.ReturnValue)
}

func TestBindingsSurviveLimitChange(t *testing.T) {
	h := host.New()
	defer h.Close()

	h.RegisterFunction("double", func(L *lua.LState) int {
		L.Push(lua.LNumber(L.CheckNumber(1) * 2))
		return 1
	})

	out, err := h.Execute("double(21)")
	require.NoError(t, err)
	require.NotNil(t, out.ReturnValue)
	assert.Equal(t, "42", *out.ReturnValue)

	h.SetExecutionLimit(time.Second)

	out, err = h.Execute("double(21)")
	require.NoError(t, err, "binding should survive the interpreter rebuild")
	require.NotNil(t, out.ReturnValue)
	assert.Equal(t, "42", *out.ReturnValue)
}

func TestRegisterModule(t *testing.T) {
	h := host.New()
	defer h.Close()

	h.RegisterModule("mymath", map[string]lua.LGFunction{
		"add": func(L *lua.LState) int {
			L.Push(lua.LNumber(L.CheckNumber(1) + L.CheckNumber(2)))
			return 1
		},
	})

	out, err := h.Execute("mymath.add(1, 2)")
	require.NoError(t, err)
	require.NotNil(t, out.ReturnValue)
	assert.Equal(t, "3", *out.ReturnValue)
}

func TestRegisterFunctionLastWriteWins(t *testing.T) {
	h := host.New()
	defer h.Close()

	h.RegisterFunction("answer", func(L *lua.LState) int {
		L.Push(lua.LNumber(1))
		return 1
	})
	h.RegisterFunction("answer", func(L *lua.LState) int {
		L.Push(lua.LNumber(2))
		return 1
	})

	out, err := h.Execute("answer()")
	require.NoError(t, err)
	require.NotNil(t, out.ReturnValue)
	assert.Equal(t, "2", *out.ReturnValue)

	// Still the latest registration after a rebuild.
	h.SetExecutionLimit(2 * time.Second)
	out, err = h.Execute("answer()")
	require.NoError(t, err)
	assert.Equal(t, "2", *out.ReturnValue)
}

func TestReplayIntoCopiesBindingsAndLimit(t *testing.T) {
	source := host.New()
	defer source.Close()

	source.RegisterFunction("answer", func(L *lua.LState) int {
		L.Push(lua.LNumber(42))
		return 1
	})
	source.SetExecutionLimit(3 * time.Second)

	target := host.New()
	defer target.Close()
	source.ReplayInto(target)

	out, err := target.Execute("answer()")
	require.NoError(t, err)
	require.NotNil(t, out.ReturnValue)
	assert.Equal(t, "42", *out.ReturnValue)
	assert.Equal(t, 3*time.Second, target.ExecutionLimit())

	// Interpreter state stays independent of the source.
	_, err = target.Execute("marker = 1")
	require.NoError(t, err)
	out, err = source.Execute("marker")
	require.NoError(t, err)
	assert.Nil(t, out.ReturnValue)
}

func TestExecuteSerializesConcurrentCallers(t *testing.T) {
	h := host.New()
	defer h.Close()

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := h.Execute("local sum = 0 for i = 1, 1000 do sum = sum + i end return sum")
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}
}

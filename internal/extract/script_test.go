package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptExtract(t *testing.T) {
	x := NewScript(`
emit("alpha", "a, b", "def alpha(a, b):")
emit("beta", "", "def beta():")
`)
	funcs, err := x.Extract([]byte("unused"))
	require.NoError(t, err)
	require.Len(t, funcs, 2)
	assert.Equal(t, "alpha", funcs[0].Name)
	assert.Equal(t, "a, b", funcs[0].Params)
	assert.Equal(t, "def beta():", funcs[1].Code)
}

func TestScriptExtractSeesSource(t *testing.T) {
	x := NewScript(`
if len(src) > 0 {
    emit("found", "", src)
}
`)
	funcs, err := x.Extract([]byte("def found():"))
	require.NoError(t, err)
	require.Len(t, funcs, 1)
	assert.Equal(t, "def found():", funcs[0].Code)
}

func TestScriptExtractFiltersControlKeywords(t *testing.T) {
	x := NewScript(`
emit("if", "cond", "if (cond) {")
emit("real", "a", "function real(a) {")
`)
	funcs, err := x.Extract([]byte(""))
	require.NoError(t, err)
	require.Len(t, funcs, 1)
	assert.Equal(t, "real", funcs[0].Name)
}

func TestScriptExtractBadSource(t *testing.T) {
	x := NewScript(`this is not valid (((`)
	_, err := x.Extract([]byte(""))
	assert.Error(t, err)
}

func TestScriptExtractBadEmitArgs(t *testing.T) {
	x := NewScript(`emit("only-name")`)
	_, err := x.Extract([]byte(""))
	assert.Error(t, err)
}

func TestScriptIsDefinitionLine(t *testing.T) {
	x := NewScript("")
	assert.True(t, x.IsDefinitionLine("def helper(a):", "helper"))
	assert.True(t, x.IsDefinitionLine("func helper(a int) {", "helper"))
	assert.False(t, x.IsDefinitionLine("x = helper(1)", "helper"))
}

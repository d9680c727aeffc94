package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScope struct {
	vars         map[string]string
	placeholders map[string]string
}

func (s fakeScope) ResolveVariable(name string, props []PropStep) string {
	return s.vars[name]
}

func (s fakeScope) ResolvePlaceholder(name string, props []PropStep) string {
	return s.placeholders[name]
}

func TestEvalMath_AddSubMulDivPrecedence(t *testing.T) {
	v, err := EvalMath("2+3*4", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(14), v)
}

func TestEvalMath_Parens(t *testing.T) {
	v, err := EvalMath("(2+3)*4", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(20), v)
}

func TestEvalMath_UnaryMinus(t *testing.T) {
	v, err := EvalMath("-2+5", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(3), v)
}

func TestEvalMath_DivisionByZeroResolvesToZero(t *testing.T) {
	v, err := EvalMath("5/0", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(0), v)
}

func TestEvalMath_VariableSubstitution(t *testing.T) {
	scope := fakeScope{vars: map[string]string{"level": "5"}}
	v, err := EvalMath("$level * 2", scope)
	require.NoError(t, err)
	assert.Equal(t, float64(10), v)
}

func TestEvalMath_PlaceholderSubstitution(t *testing.T) {
	scope := fakeScope{placeholders: map[string]string{"character": "5"}}
	v, err := EvalMath("@character.level * 2", scope)
	require.NoError(t, err)
	assert.Equal(t, float64(10), v)
}

func TestEvalMath_UnresolvableVariableIsZero(t *testing.T) {
	v, err := EvalMath("$missing + 4", fakeScope{vars: map[string]string{}})
	require.NoError(t, err)
	assert.Equal(t, float64(4), v)
}

func TestEvalMath_UnknownTokenIsError(t *testing.T) {
	_, err := EvalMath("2 & 3", nil)
	require.Error(t, err)
}

func TestFormatMathResult_WholeNumberHasNoTrailingZero(t *testing.T) {
	assert.Equal(t, "10", FormatMathResult(10))
}

func TestFormatMathResult_FractionKeepsDecimal(t *testing.T) {
	assert.Equal(t, "2.5", FormatMathResult(2.5))
}

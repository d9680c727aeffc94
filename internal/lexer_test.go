package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexer_Tokenize_PlainText(t *testing.T) {
	frags, err := NewLexer("just some words", nil).Tokenize()
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.Equal(t, FragmentText, frags[0].Kind)
	assert.Equal(t, "just some words", frags[0].Text)
}

func TestLexer_Tokenize_TextAndExpr(t *testing.T) {
	frags, err := NewLexer("Hello {{name}}, welcome.", nil).Tokenize()
	require.NoError(t, err)
	require.Len(t, frags, 3)
	assert.Equal(t, FragmentText, frags[0].Kind)
	assert.Equal(t, "Hello ", frags[0].Text)
	assert.Equal(t, FragmentExpr, frags[1].Kind)
	assert.Equal(t, "name", frags[1].Text)
	assert.Equal(t, FragmentText, frags[2].Kind)
	assert.Equal(t, ", welcome.", frags[2].Text)
}

func TestLexer_Tokenize_EscapedOpenDelim(t *testing.T) {
	frags, err := NewLexer(`literal \{{ braces`, nil).Tokenize()
	require.NoError(t, err)
	require.Len(t, frags, 2)
	assert.Equal(t, "literal ", frags[0].Text)
	assert.Equal(t, "{{ braces", frags[1].Text)
}

func TestLexer_Tokenize_NestedBraces(t *testing.T) {
	frags, err := NewLexer(`{{switch[$x=="a":"{{y}}"]}}`, nil).Tokenize()
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.Equal(t, FragmentExpr, frags[0].Kind)
	assert.Equal(t, `switch[$x=="a":"{{y}}"]`, frags[0].Text)
}

func TestLexer_Tokenize_QuoteHonoringClosingBraces(t *testing.T) {
	// a "}}"-looking sequence inside a quoted string must not close the
	// fragment early.
	frags, err := NewLexer(`{{switch[$x=="}}":"yes"]}}`, nil).Tokenize()
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.Equal(t, `switch[$x=="}}":"yes"]`, frags[0].Text)
}

func TestLexer_Tokenize_UnterminatedFragment(t *testing.T) {
	_, err := NewLexer("{{open forever", nil).Tokenize()
	require.Error(t, err)
}

func TestLexer_Tokenize_EmptyString(t *testing.T) {
	frags, err := NewLexer("", nil).Tokenize()
	require.NoError(t, err)
	assert.Empty(t, frags)
}

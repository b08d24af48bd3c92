package codegen

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeFormat(t *testing.T) {
	code, err := Code("MP-", 8)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(code, "MP-"))
	assert.Len(t, code, 11)

	for _, ch := range code[3:] {
		assert.Contains(t, codeAlphabet, string(ch))
	}
}

func TestCodeExcludesConfusables(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := Code("", 16)
		require.NoError(t, err)
		assert.NotRegexp(t, regexp.MustCompile(`[0OI1L]`), code)
	}
}

func TestCodeRejectsNonPositiveLength(t *testing.T) {
	_, err := Code("MP-", 0)
	assert.Error(t, err)
}

func TestTemporaryPasswordClassCoverage(t *testing.T) {
	upper := regexp.MustCompile(`[A-Z]`)
	lower := regexp.MustCompile(`[a-z]`)
	digit := regexp.MustCompile(`[0-9]`)
	symbol := regexp.MustCompile(`[!@#$%^&*]`)

	for i := 0; i < 100; i++ {
		pw, err := TemporaryPassword(12)
		require.NoError(t, err)
		require.Len(t, pw, 12)
		assert.Regexp(t, upper, pw)
		assert.Regexp(t, lower, pw)
		assert.Regexp(t, digit, pw)
		assert.Regexp(t, symbol, pw)
	}
}

func TestTemporaryPasswordMinimumLength(t *testing.T) {
	_, err := TemporaryPassword(3)
	assert.Error(t, err)

	pw, err := TemporaryPassword(4)
	require.NoError(t, err)
	assert.Len(t, pw, 4)
}

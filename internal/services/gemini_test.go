package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateUTF8(t *testing.T) {
	t.Run("short text untouched", func(t *testing.T) {
		assert.Equal(t, "hello", truncateUTF8("hello", 10))
	})

	t.Run("ascii cut at the exact limit", func(t *testing.T) {
		assert.Equal(t, "hello", truncateUTF8("hello world", 5))
	})

	t.Run("never splits a multi-byte rune", func(t *testing.T) {
		text := strings.Repeat("é", 10)
		got := truncateUTF8(text, 5)
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, strings.Repeat("é", 2), got)
	})

	t.Run("output is valid at every cut point", func(t *testing.T) {
		text := "résumé 简历 ok"
		for limit := 0; limit <= len(text); limit++ {
			assert.True(t, utf8.ValidString(truncateUTF8(text, limit)))
		}
	})
}

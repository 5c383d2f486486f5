package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeTextStripsControlCharacters(t *testing.T) {
	require.Equal(t, "hello world", SanitizeText("hello\x00 world\x07", 280))
}

func TestSanitizeTextTruncates(t *testing.T) {
	long := strings.Repeat("a", 300)
	got := SanitizeText(long, 280)
	require.Len(t, got, 280)
}

func TestSanitizeTextDefaultLimit(t *testing.T) {
	long := strings.Repeat("b", 400)
	require.Len(t, SanitizeText(long, 0), MaxPostLength)
}

func TestSanitizeTextKeepsNewlines(t *testing.T) {
	require.Equal(t, "line one\nline two", SanitizeText("line one\nline two", 280))
}

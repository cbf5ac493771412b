package tgui

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestEscapeAndTags(t *testing.T) {
	t.Parallel()
	require.Equal(t, H("&lt;b&gt;x&amp;y"), Esc("<b>x&y"))
	require.Equal(t, H("<b>a&lt;b</b>"), B("a<b"))
	require.Equal(t, H("<i>x</i>\n<code>y</code>"), JoinH("\n", I("x"), "", Code("y")))
}

func TestTruncRunes(t *testing.T) {
	t.Parallel()
	require.Equal(t, "abc", TruncRunes("abc", 3))
	require.Equal(t, "ab…", TruncRunes("abcd", 3))
	require.Equal(t, "żó…", TruncRunes("żółw!", 3))
	require.Equal(t, "", TruncRunes("abc", 0))

	long := strings.Repeat("x", MaxMessageRunes+10)
	require.Equal(t, MaxMessageRunes, utf8.RuneCountInString(TruncRunes(long, MaxMessageRunes)))
}

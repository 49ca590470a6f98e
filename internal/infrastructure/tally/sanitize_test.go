package tally

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize_CleanInputUnchanged(t *testing.T) {
	clean := `<ENVELOPE><BODY><DATA>M&amp;M Traders &#65; &#x41; ok</DATA></BODY></ENVELOPE>`
	assert.Equal(t, clean, Sanitize(clean))
}

func TestSanitize_StripsControlCharacters(t *testing.T) {
	dirty := "<DATA>abc\x00def\x01\x7f</DATA>"
	assert.Equal(t, "<DATA>abcdef</DATA>", Sanitize(dirty))
}

func TestSanitize_PreservesWhitespaceControls(t *testing.T) {
	input := "<DATA>line1\nline2\tend\r</DATA>"
	assert.Equal(t, input, Sanitize(input))
}

func TestSanitize_StripsIllegalCharacterReferences(t *testing.T) {
	assert.Equal(t, "<DATA>ab</DATA>", Sanitize("<DATA>a&#0;&#4;&#31;b</DATA>"))
	assert.Equal(t, "<DATA>ab</DATA>", Sanitize("<DATA>a&#x0;&#x1F;&#x7f;b</DATA>"))
	// tab, LF and CR references are legal and stay
	assert.Equal(t, "<DATA>a&#9;&#10;&#13;b</DATA>", Sanitize("<DATA>a&#9;&#10;&#13;b</DATA>"))
}

func TestSanitize_EscapesBareAmpersands(t *testing.T) {
	assert.Equal(t, "<NAME>M&amp;M Traders</NAME>", Sanitize("<NAME>M&M Traders</NAME>"))
	// already-escaped entities are not double escaped
	assert.Equal(t, "<NAME>M&amp;M &lt;Pvt&gt;</NAME>", Sanitize("<NAME>M&amp;M &lt;Pvt&gt;</NAME>"))
	// trailing bare ampersand
	assert.Equal(t, "<NAME>AT&amp;</NAME>", Sanitize("<NAME>AT&</NAME>"))
}

func TestSanitize_Idempotent(t *testing.T) {
	dirty := "<NAME>M&M\x00 Traders &#2;</NAME>"
	once := Sanitize(dirty)
	assert.Equal(t, once, Sanitize(once))
	assert.Equal(t, "<NAME>M&amp;M Traders </NAME>", once)
}

package tally

import (
	"regexp"
	"strconv"
	"strings"
)

// The engine emits XML with raw control characters, numeric references to
// those same characters, and unescaped ampersands in ledger names. All
// three break standard parsers and must be cleaned before decoding.

var (
	decimalRefPattern = regexp.MustCompile(`&#([0-9]{1,7});`)
	hexRefPattern     = regexp.MustCompile(`&#[xX]([0-9a-fA-F]{1,6});`)
	entityAfterAmp    = regexp.MustCompile(`^(amp|lt|gt|apos|quot);|^#[0-9]{1,7};|^#[xX][0-9a-fA-F]{1,6};`)
)

// Sanitize makes a raw engine response safe to parse. It strips characters
// that are illegal in XML 1.0 (C0 controls except tab/LF/CR, and DEL),
// removes numeric character references encoding those same code points,
// and escapes any ampersand that does not start a recognized entity or
// numeric reference. Sanitizing already-clean text returns it unchanged.
func Sanitize(text string) string {
	text = strings.Map(func(r rune) rune {
		if isIllegalControl(r) {
			return -1
		}
		return r
	}, text)

	text = decimalRefPattern.ReplaceAllStringFunc(text, func(ref string) string {
		code, err := strconv.ParseInt(ref[2:len(ref)-1], 10, 32)
		if err != nil || isIllegalControl(rune(code)) {
			return ""
		}
		return ref
	})
	text = hexRefPattern.ReplaceAllStringFunc(text, func(ref string) string {
		code, err := strconv.ParseInt(ref[3:len(ref)-1], 16, 32)
		if err != nil || isIllegalControl(rune(code)) {
			return ""
		}
		return ref
	})

	return escapeBareAmpersands(text)
}

func isIllegalControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return r < 0x20 || r == 0x7f
}

// escapeBareAmpersands rewrites every '&' that is not already the start of
// a recognized entity or numeric reference to "&amp;".
func escapeBareAmpersands(text string) string {
	if !strings.ContainsRune(text, '&') {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if text[i] != '&' {
			b.WriteByte(text[i])
			continue
		}
		if entityAfterAmp.MatchString(text[i+1:]) {
			b.WriteByte('&')
			continue
		}
		b.WriteString("&amp;")
	}
	return b.String()
}

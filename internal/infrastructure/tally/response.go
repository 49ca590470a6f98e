package tally

import (
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Outcome is the classified result of an engine import response.
type Outcome struct {
	Success    bool
	Created    int
	Altered    int
	Errors     int
	LineError  string
	GUID       string
	Raw        string
	ParseError string
}

// ErrorMessage returns the most specific failure description available.
func (o Outcome) ErrorMessage() string {
	switch {
	case o.LineError != "":
		return o.LineError
	case o.Errors > 0:
		return "engine reported " + strconv.Itoa(o.Errors) + " errors"
	case o.ParseError != "":
		return "unparseable engine response: " + o.ParseError
	}
	return ""
}

// DecodeImportResponse sanitizes and classifies a raw engine response.
// A response is a failure if a line-level error is present or the error
// counter is positive. It is a success if the created or altered counter
// is positive, or if the response carries no result markers at all; the
// engine omits them on trivial success. Malformed input never panics and
// yields an outcome carrying the parse error and raw text.
func DecodeImportResponse(raw string) Outcome {
	out := Outcome{Raw: raw}

	dec := newLenientDecoder(Sanitize(raw))
	var stack []string
	sawMarker := false

	for {
		tok, err := dec.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				out.ParseError = err.Error()
				out.Success = false
				return out
			}
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			switch stack[len(stack)-1] {
			case "LINEERROR":
				sawMarker = true
				if out.LineError == "" {
					out.LineError = text
				} else {
					out.LineError += "; " + text
				}
			case "CREATED":
				sawMarker = true
				out.Created += atoiSafe(text)
			case "ALTERED":
				sawMarker = true
				out.Altered += atoiSafe(text)
			case "ERRORS":
				sawMarker = true
				out.Errors += atoiSafe(text)
			case "GUID":
				if out.GUID == "" {
					out.GUID = text
				}
			}
		}
	}

	switch {
	case out.LineError != "" || out.Errors > 0:
		out.Success = false
	case out.Created > 0 || out.Altered > 0:
		out.Success = true
	case !sawMarker:
		out.Success = true
	}
	return out
}

// CollectionEntry is one record from a TDL collection export.
type CollectionEntry struct {
	Name           string
	Parent         string
	GUID           string
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
}

// ParseCollection extracts records of the given element name (for example
// COMPANY, LEDGER or VOUCHERTYPE) from a collection export response. The
// record name may come from the NAME attribute or a NAME child element.
func ParseCollection(raw, element string) ([]CollectionEntry, error) {
	dec := newLenientDecoder(Sanitize(raw))

	var entries []CollectionEntry
	var current *CollectionEntry
	var stack []string
	depth := 0

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
			if current == nil && t.Name.Local == element {
				current = &CollectionEntry{}
				depth = len(stack)
				for _, attr := range t.Attr {
					if attr.Name.Local == "NAME" {
						current.Name = attr.Value
					}
				}
			}
		case xml.EndElement:
			if current != nil && len(stack) == depth && t.Name.Local == element {
				if current.Name != "" {
					entries = append(entries, *current)
				}
				current = nil
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if current == nil || len(stack) != depth+1 {
				continue
			}
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			switch stack[len(stack)-1] {
			case "NAME":
				if current.Name == "" {
					current.Name = text
				}
			case "PARENT":
				current.Parent = text
			case "GUID":
				current.GUID = text
			case "OPENINGBALANCE":
				current.OpeningBalance = decimalSafe(text)
			case "CLOSINGBALANCE":
				current.ClosingBalance = decimalSafe(text)
			}
		}
	}
	return entries, nil
}

func newLenientDecoder(text string) *xml.Decoder {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	return dec
}

func atoiSafe(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func decimalSafe(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

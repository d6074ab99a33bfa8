package snapshot

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"
)

const (
	DefaultMaxChars = 10000
	maxTextRunes    = 100
)

// Element is one interactive node of the page as the model sees it.
type Element struct {
	Tag        string            `json:"tag"`
	ID         *string           `json:"id"`
	Class      []string          `json:"class"`
	Name       *string           `json:"name"`
	Text       *string           `json:"text"`
	Attributes map[string]string `json:"attributes"`
}

// PageSnapshot is the bounded capture of a page's interactive surface.
// It is built once per page load and must not be modified afterwards.
type PageSnapshot struct {
	URL       string
	Title     string
	Elements  []Element
	Text      string
	Truncated bool
}

// Truncate keeps the first n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// encodeElements serializes elements into a JSON array that never exceeds
// maxChars runes. Elements that do not fit are dropped from the tail.
// Attribute values are kept verbatim, so "&" in an href stays "&".
func encodeElements(elements []Element, maxChars int) (string, int) {
	if maxChars < 2 {
		return "", 0
	}

	var sb strings.Builder
	sb.WriteString("[")
	used := 2
	kept := 0

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for _, el := range elements {
		buf.Reset()
		if err := enc.Encode(el); err != nil {
			break
		}
		item := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
		n := utf8.RuneCount(item)
		if kept > 0 {
			n++
		}
		if used+n > maxChars {
			break
		}
		if kept > 0 {
			sb.WriteString(",")
		}
		sb.Write(item)
		used += n
		kept++
	}

	sb.WriteString("]")
	return sb.String(), kept
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cleanText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > maxTextRunes {
		return Truncate(s, maxTextRunes) + "..."
	}
	return s
}

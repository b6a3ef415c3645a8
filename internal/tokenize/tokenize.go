// Package tokenize implements the word-splitting contract shared by the
// BM25 index and the query path of the search DB: both sides must agree
// on what a "term" is, or lexical retrieval silently stops matching.
package tokenize

// Tokenize scans text and returns the maximal runs of ASCII letters,
// digits, and underscore as lowercase terms. Every other byte, including
// non-ASCII runes, is a separator — there is no stemming and no stop-word
// list. "getUserById" is one token, not four; callers that want
// sub-identifier splitting must do it themselves before indexing.
func Tokenize(text string) []string {
	var tokens []string
	start := -1
	for i := 0; i < len(text); i++ {
		c := text[i]
		if isWordByte(c) {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			tokens = append(tokens, foldLower(text[start:i]))
			start = -1
		}
	}
	if start != -1 {
		tokens = append(tokens, foldLower(text[start:]))
	}
	return tokens
}

func isWordByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		return true
	default:
		return false
	}
}

func foldLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

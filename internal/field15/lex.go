package field15

import "strings"

// fieldDelims is the Field 15 whitespace set: space, tab, newline, carriage
// return, and forward slash. All but the slash are discarded; the slash is
// retained as its own token.
const fieldDelims = " \t\n\r/"

// Tokenize splits a raw Field 15 string into a TokenStream. Delimiters are
// stripped except for '/', which is preserved as a standalone SLASH token.
// Classification is performed immediately so the returned stream's tokens
// are already fully typed, matching the "no classification has been
// performed at this stage" contract from the caller's point of view only
// in the sense that Tokenize is the external-tokenizer analog described in
// the interface section; internally it calls straight through to Classify.
func Tokenize(raw string) *TokenStream {
	var tokens []Token
	start := -1

	flush := func(end int) {
		if start < 0 {
			return
		}
		text := raw[start:end]
		tok := Token{Text: text, Start: start, End: end}
		tok.Base, tok.Sub = Classify(text)
		tokens = append(tokens, tok)
		start = -1
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if strings.IndexByte(fieldDelims, c) >= 0 {
			flush(i)
			if c == '/' {
				tok := Token{Text: "/", Start: i, End: i + 1, Base: SLASH}
				tokens = append(tokens, tok)
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(raw))

	ts := NewTokenStream(tokens)
	ts.source = raw
	return ts
}

package naf

import (
	"strings"
	"unicode"
)

// Expand turns a partial or ambiguous activity code into its canonical
// full-code set.
//
// Punctuation and whitespace are stripped first. A cleaned code ending in a
// letter is already terminal and comes back as a singleton, reformatted with
// the decimal point after the second digit ("5210a" -> "52.10A"). Anything
// else is treated as a digit prefix and expands to every registry code whose
// digits start with it, in registry order. An unknown prefix yields an empty
// set.
func Expand(input string) []string {
	cleaned := clean(input)
	if cleaned == "" {
		return nil
	}

	last := rune(cleaned[len(cleaned)-1])
	if unicode.IsLetter(last) {
		canonical, ok := canonicalize(cleaned)
		if !ok {
			return nil
		}
		return []string{canonical}
	}

	var expanded []string
	for _, code := range registry {
		digits := strings.ReplaceAll(code.ID[:len(code.ID)-1], ".", "")
		if strings.HasPrefix(digits, cleaned) {
			expanded = append(expanded, code.ID)
		}
	}
	return expanded
}

// clean strips punctuation and whitespace and uppercases the result.
func clean(input string) string {
	var b strings.Builder
	for _, r := range input {
		if unicode.IsDigit(r) || unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// canonicalize reformats a terminal code as "NN.NNX". Inputs that are not
// four digits followed by one letter are rejected.
func canonicalize(cleaned string) (string, bool) {
	if len(cleaned) != 5 {
		return "", false
	}
	for _, r := range cleaned[:4] {
		if !unicode.IsDigit(r) {
			return "", false
		}
	}
	return cleaned[:2] + "." + cleaned[2:], true
}

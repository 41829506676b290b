package keyout

import "strings"

// sentenceEnders get a following space inserted when the recognizer glues
// the next word directly onto them.
const sentenceEnders = ".!?"

// NormalizeText cleans up recognizer output before it is typed: runs of
// whitespace collapse to single spaces, stray spaces before punctuation are
// removed, and sentence-ending punctuation is followed by a space.
func NormalizeText(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	for i, f := range fields {
		if i > 0 && !isPunctOnly(f) {
			b.WriteByte(' ')
		}
		b.WriteString(f)
	}

	out := b.String()

	// "word.Next" -> "word. Next"
	var fixed strings.Builder
	fixed.Grow(len(out) + 4)
	runes := []rune(out)
	for i, r := range runes {
		fixed.WriteRune(r)
		if strings.ContainsRune(sentenceEnders, r) && i+1 < len(runes) {
			next := runes[i+1]
			if next != ' ' && !strings.ContainsRune(sentenceEnders, next) {
				fixed.WriteByte(' ')
			}
		}
	}
	return fixed.String()
}

// isPunctOnly reports whether a token is nothing but punctuation that should
// attach to the previous word, like a lone "." or ",".
func isPunctOnly(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(".,:;!?", r) {
			return false
		}
	}
	return s != ""
}

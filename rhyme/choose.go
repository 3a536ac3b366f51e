package rhyme

// Choose picks a word for a bot turn: the first word in lexicon rank
// order whose evaluation against the prompt is a clean accept and that
// the exclude predicate does not veto. The fixed ordering keeps bot
// behavior reproducible. Returns "" when the search space is exhausted;
// callers treat that as a bot forfeit.
func (e *Engine) Choose(prompt string, exclude func(string) bool, cfg Config) string {
	normalized := Normalize(prompt)
	for _, word := range e.dict.Words() {
		if word == normalized {
			continue
		}
		if exclude != nil && exclude(word) {
			continue
		}
		if e.Evaluate(normalized, word, cfg).Verdict == Accept {
			return word
		}
	}
	return ""
}

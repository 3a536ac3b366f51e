package rhyme

import (
	_ "embed"
	"regexp"
	"strings"
)

//go:embed data/cmudict.txt
var dictData string

// Pronunciation is one ordered sequence of ARPAbet phones for a word-sense.
type Pronunciation []string

var wordRe = regexp.MustCompile(`^[a-z]+(?:['-][a-z]+)*$`)

const (
	minPromptLen    = 4
	minPromptRhymes = 5
)

// Dictionary is the read-only pronunciation source. It is loaded once at
// startup and shared; nothing mutates it afterwards.
type Dictionary struct {
	entries map[string][]Pronunciation
	order   []string
	rank    map[string]int
	family  map[string][]string
	prompts []string
}

// Load parses the embedded lexicon. Malformed lines are skipped.
func Load() *Dictionary {
	d := &Dictionary{
		entries: make(map[string][]Pronunciation),
		rank:    make(map[string]int),
		family:  make(map[string][]string),
	}

	for _, line := range strings.Split(dictData, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ";;;") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		word := strings.ToLower(fields[0])
		if i := strings.IndexByte(word, '('); i > 0 {
			word = word[:i]
		}
		if _, seen := d.entries[word]; !seen {
			d.rank[word] = len(d.order)
			d.order = append(d.order, word)
		}
		d.entries[word] = append(d.entries[word], Pronunciation(fields[1:]))
	}

	for _, word := range d.order {
		for _, pron := range d.entries[word] {
			if rime := Rime(pron); rime != nil {
				key := strings.Join(rime, " ")
				d.family[key] = append(d.family[key], word)
			}
		}
	}

	for _, word := range d.order {
		if len(word) >= minPromptLen && d.RhymeCount(word) >= minPromptRhymes {
			d.prompts = append(d.prompts, word)
		}
	}

	return d
}

// Normalize lower-cases and trims a word for lookup.
func Normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// PlausibleToken reports whether the input looks like a single English
// word token (letters, optional internal apostrophe or hyphen).
func PlausibleToken(word string) bool {
	return wordRe.MatchString(Normalize(word))
}

// Lookup returns every pronunciation for a word, or nil when the word
// is out of vocabulary. Callers treat nil as "cannot rhyme".
func (d *Dictionary) Lookup(word string) []Pronunciation {
	return d.entries[Normalize(word)]
}

// Known reports whether the word has at least one pronunciation.
func (d *Dictionary) Known(word string) bool {
	return len(d.Lookup(word)) > 0
}

// Rank returns the word's position in the lexicon, used as the
// deterministic tie-break for bot word selection. Unknown words sort last.
func (d *Dictionary) Rank(word string) int {
	if rank, ok := d.rank[Normalize(word)]; ok {
		return rank
	}
	return len(d.order)
}

// Words returns every known word in rank order.
func (d *Dictionary) Words() []string {
	return d.order
}

// Prompts returns the playable prompt pool: words long enough to be
// interesting whose exact-rhyme family has enough members to sustain a
// round.
func (d *Dictionary) Prompts() []string {
	return d.prompts
}

// RhymeCount returns how many other words share an exact rime with any
// pronunciation of the given word.
func (d *Dictionary) RhymeCount(word string) int {
	normalized := Normalize(word)
	seen := make(map[string]bool)
	for _, pron := range d.Lookup(word) {
		rime := Rime(pron)
		if rime == nil {
			continue
		}
		for _, other := range d.family[strings.Join(rime, " ")] {
			if other != normalized {
				seen[other] = true
			}
		}
	}
	return len(seen)
}

// Rime returns the suffix of a pronunciation from its last stressed
// vowel to the end. If no vowel carries primary or secondary stress the
// last vowel is used; nil if the pronunciation has no vowel at all.
func Rime(pron Pronunciation) []string {
	start := -1
	lastVowel := -1
	for i, phone := range pron {
		if !isVowel(phone) {
			continue
		}
		lastVowel = i
		stress := phone[len(phone)-1]
		if stress == '1' || stress == '2' {
			start = i
		}
	}
	if start < 0 {
		start = lastVowel
	}
	if start < 0 {
		return nil
	}
	return pron[start:]
}

// RimeDisplay renders the word's rhyming part(s) for the UI, stress
// stripped, distinct pronunciation families joined with " / ".
func (d *Dictionary) RimeDisplay(word string) string {
	var parts []string
	seen := make(map[string]bool)
	for _, pron := range d.Lookup(word) {
		rime := Rime(pron)
		if rime == nil {
			continue
		}
		stripped := make([]string, len(rime))
		for i, phone := range rime {
			stripped[i] = stripStress(phone)
		}
		display := strings.Join(stripped, " ")
		if !seen[display] {
			seen[display] = true
			parts = append(parts, display)
		}
	}
	return strings.Join(parts, " / ")
}

package rhyme

import "strings"

type Verdict int

const (
	Reject Verdict = iota
	Accept
	Borderline
)

func (v Verdict) String() string {
	switch v {
	case Accept:
		return "accept"
	case Borderline:
		return "borderline"
	default:
		return "reject"
	}
}

// Config is the per-guess rule set. Strict rhyme is always accepted;
// each enabled toggle only ever adds acceptance, never removes it.
type Config struct {
	// Accept one extra trailing consonant on either word ("bed"/"beds").
	AllowTrailingCluster bool `json:"allow_trailing_consonant_cluster"`

	// Accept coda consonants that differ by phonetic class, governed by
	// the three sub-toggles below.
	AllowFinalClassSubstitution bool `json:"allow_final_consonant_class_substitution"`
	CodaIgnoreVoicing           bool `json:"coda_ignore_voicing"`
	CodaSameManner              bool `json:"coda_same_manner"`
	CodaSamePlace               bool `json:"coda_same_place"`

	// Accept when the stressed vowels match, ignoring the coda entirely.
	AllowVowelOnly bool `json:"allow_vowel_match_only"`

	// Widen what counts as a matching vowel for every vowel check.
	AllowNearVowel      bool `json:"allow_near_vowel_substitution"`
	NearVowelTenseLax   bool `json:"near_vowel_tense_lax_pairs"`
	NearVowelShortFront bool `json:"near_vowel_short_front_bucket"`

	// Award an extra point when a guess needed a leniency rule.
	SlantBonus bool `json:"bonus_slant_rhyme"`
}

// Lenient reports whether any acceptance-widening toggle is on.
func (c Config) Lenient() bool {
	return c.AllowTrailingCluster ||
		c.AllowFinalClassSubstitution ||
		c.AllowVowelOnly ||
		c.AllowNearVowel
}

// Preset maps a difficulty name to a rule set. Unrecognized names get
// the medium preset.
func Preset(difficulty string) Config {
	switch strings.ToLower(strings.TrimSpace(difficulty)) {
	case "easy":
		return Config{
			AllowTrailingCluster:        true,
			AllowFinalClassSubstitution: true,
			CodaIgnoreVoicing:           true,
			CodaSameManner:              true,
			AllowVowelOnly:              true,
			AllowNearVowel:              true,
			NearVowelTenseLax:           true,
			NearVowelShortFront:         true,
			SlantBonus:                  true,
		}
	case "hard":
		return Config{}
	default:
		return Config{
			AllowTrailingCluster:        true,
			AllowFinalClassSubstitution: true,
			CodaIgnoreVoicing:           true,
		}
	}
}

type Result struct {
	Verdict   Verdict
	UsedSlant bool
}

// Engine decides whether two words rhyme under a rule set.
type Engine struct {
	dict *Dictionary
}

func NewEngine(dict *Dictionary) *Engine {
	return &Engine{dict: dict}
}

func (e *Engine) Dict() *Dictionary {
	return e.dict
}

type rimeInfo struct {
	nucleus   string
	coda      []string
	raw       []string
	syllables int
}

func rimeInfos(prons []Pronunciation) []rimeInfo {
	infos := make([]rimeInfo, 0, len(prons))
	for _, pron := range prons {
		rime := Rime(pron)
		if rime == nil {
			continue
		}
		syllables := 0
		for _, phone := range pron {
			if isVowel(phone) {
				syllables++
			}
		}
		infos = append(infos, rimeInfo{
			nucleus:   stripStress(rime[0]),
			coda:      rime[1:],
			raw:       rime,
			syllables: syllables,
		})
	}
	return infos
}

// Evaluate judges a (prompt, guess) pair. Exact rime identity across any
// pronunciation pair wins immediately; otherwise the leniency rules are
// tried in order from closest-to-perfect to broadest; otherwise a fixed
// closeness test may defer the pair to human adjudication.
func (e *Engine) Evaluate(a, b string, cfg Config) Result {
	pronsA := e.dict.Lookup(a)
	pronsB := e.dict.Lookup(b)
	if len(pronsA) == 0 || len(pronsB) == 0 {
		return Result{Verdict: Reject}
	}

	infosA := rimeInfos(pronsA)
	infosB := rimeInfos(pronsB)

	for _, ia := range infosA {
		for _, ib := range infosB {
			if phonesEqual(ia.raw, ib.raw) {
				return Result{Verdict: Accept}
			}
		}
	}

	rules := []func(rimeInfo, rimeInfo) bool{
		func(ia, ib rimeInfo) bool {
			return cfg.AllowVowelOnly && vowelsEquivalent(ia.nucleus, ib.nucleus, cfg)
		},
		func(ia, ib rimeInfo) bool {
			return cfg.AllowTrailingCluster &&
				vowelsEquivalent(ia.nucleus, ib.nucleus, cfg) &&
				oneExtraFinalConsonant(ia.coda, ib.coda)
		},
		func(ia, ib rimeInfo) bool {
			return cfg.AllowFinalClassSubstitution &&
				vowelsEquivalent(ia.nucleus, ib.nucleus, cfg) &&
				codasCompatible(ia.coda, ib.coda, cfg)
		},
		func(ia, ib rimeInfo) bool {
			return cfg.AllowNearVowel &&
				ia.nucleus != ib.nucleus &&
				vowelsEquivalent(ia.nucleus, ib.nucleus, cfg) &&
				phonesEqual(ia.coda, ib.coda)
		},
	}

	for _, rule := range rules {
		for _, ia := range infosA {
			for _, ib := range infosB {
				if ia.syllables != ib.syllables {
					continue
				}
				if rule(ia, ib) {
					return Result{Verdict: Accept, UsedSlant: true}
				}
			}
		}
	}

	for _, ia := range infosA {
		for _, ib := range infosB {
			if closeMiss(ia, ib) {
				return Result{Verdict: Borderline}
			}
		}
	}

	return Result{Verdict: Reject}
}

func phonesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func vowelsEquivalent(v1, v2 string, cfg Config) bool {
	if v1 == v2 {
		return true
	}
	if !cfg.AllowNearVowel {
		return false
	}
	if cfg.NearVowelTenseLax && tenseLaxPairs[v1] == v2 {
		return true
	}
	if cfg.NearVowelShortFront && shortFrontBucket[v1] && shortFrontBucket[v2] {
		return true
	}
	return false
}

// oneExtraFinalConsonant reports whether one coda is exactly the other
// plus a single extra trailing consonant.
func oneExtraFinalConsonant(t1, t2 []string) bool {
	if len(t1)+1 == len(t2) {
		return phonesEqual(t1, t2[:len(t2)-1]) && isConsonant(t2[len(t2)-1])
	}
	if len(t2)+1 == len(t1) {
		return phonesEqual(t2, t1[:len(t1)-1]) && isConsonant(t1[len(t1)-1])
	}
	return false
}

// codasCompatible requires equal-length codas whose consonants match
// pairwise under the enabled class sub-toggles.
func codasCompatible(t1, t2 []string, cfg Config) bool {
	if len(t1) != len(t2) || len(t1) == 0 {
		return false
	}
	for i := range t1 {
		if !consonantsCompatible(t1[i], t2[i], cfg) {
			return false
		}
	}
	return true
}

func consonantsCompatible(c1, c2 string, cfg Config) bool {
	if c1 == c2 {
		return true
	}
	if !isConsonant(c1) || !isConsonant(c2) {
		return false
	}
	f1, ok1 := consonantFeatures[c1]
	f2, ok2 := consonantFeatures[c2]
	if !ok1 || !ok2 {
		return false
	}
	if cfg.CodaIgnoreVoicing && f1.Place == f2.Place && f1.Manner == f2.Manner {
		return true
	}
	if cfg.CodaSameManner && f1.Manner == f2.Manner {
		return true
	}
	if cfg.CodaSamePlace && f1.Place == f2.Place {
		return true
	}
	return false
}

// closeMiss is the fixed, toggle-independent borderline test: either the
// rimes differ only in stress placement, or the nucleus matches and the
// codas differ only in a final consonant that is two feature axes away.
func closeMiss(ia, ib rimeInfo) bool {
	if len(ia.raw) == len(ib.raw) && !phonesEqual(ia.raw, ib.raw) {
		same := true
		for i := range ia.raw {
			if stripStress(ia.raw[i]) != stripStress(ib.raw[i]) {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}

	if ia.nucleus != ib.nucleus {
		return false
	}
	n := len(ia.coda)
	if n == 0 || n != len(ib.coda) {
		return false
	}
	if !phonesEqual(ia.coda[:n-1], ib.coda[:n-1]) {
		return false
	}
	c1, c2 := ia.coda[n-1], ib.coda[n-1]
	if !isConsonant(c1) || !isConsonant(c2) {
		return false
	}
	return featureDistance(c1, c2) == 2
}

package rhyme

import "strings"

// ARPAbet phones. Vowels carry a trailing stress digit (0-2); consonants
// never do, so the digit check is sufficient to tell them apart.

type Manner string

const (
	Stop      Manner = "stop"
	Affricate Manner = "affricate"
	Fricative Manner = "fricative"
	Nasal     Manner = "nasal"
	Liquid    Manner = "liquid"
	Glide     Manner = "glide"
)

type Place string

const (
	Bilabial     Place = "bilabial"
	Labiodental  Place = "labiodental"
	Dental       Place = "dental"
	Alveolar     Place = "alveolar"
	Postalveolar Place = "postalveolar"
	Palatal      Place = "palatal"
	Velar        Place = "velar"
	Labiovelar   Place = "labiovelar"
	Glottal      Place = "glottal"
)

type ConsonantFeatures struct {
	Place  Place
	Manner Manner
	Voiced bool
}

// Coarse feature classes only. Unknown phones never match by class,
// which keeps the lenient rules conservative.
var consonantFeatures = map[string]ConsonantFeatures{
	"P":  {Bilabial, Stop, false},
	"B":  {Bilabial, Stop, true},
	"T":  {Alveolar, Stop, false},
	"D":  {Alveolar, Stop, true},
	"K":  {Velar, Stop, false},
	"G":  {Velar, Stop, true},
	"CH": {Postalveolar, Affricate, false},
	"JH": {Postalveolar, Affricate, true},
	"F":  {Labiodental, Fricative, false},
	"V":  {Labiodental, Fricative, true},
	"TH": {Dental, Fricative, false},
	"DH": {Dental, Fricative, true},
	"S":  {Alveolar, Fricative, false},
	"Z":  {Alveolar, Fricative, true},
	"SH": {Postalveolar, Fricative, false},
	"ZH": {Postalveolar, Fricative, true},
	"HH": {Glottal, Fricative, false},
	"M":  {Bilabial, Nasal, true},
	"N":  {Alveolar, Nasal, true},
	"NG": {Velar, Nasal, true},
	"L":  {Alveolar, Liquid, true},
	"R":  {Alveolar, Liquid, true},
	"Y":  {Palatal, Glide, true},
	"W":  {Labiovelar, Glide, true},
}

// Game-friendly near-vowel groupings. These intentionally do not try to
// model accent variation.
var tenseLaxPairs = map[string]string{
	"IY": "IH", "IH": "IY",
	"EY": "EH", "EH": "EY",
	"UW": "UH", "UH": "UW",
	"OW": "AO", "AO": "OW",
	"AA": "AH", "AH": "AA",
}

var shortFrontBucket = map[string]bool{
	"IH": true,
	"EH": true,
	"AE": true,
}

func isVowel(phone string) bool {
	if phone == "" {
		return false
	}
	last := phone[len(phone)-1]
	return last >= '0' && last <= '2'
}

func isConsonant(phone string) bool {
	return phone != "" && !isVowel(phone)
}

func stripStress(phone string) string {
	return strings.TrimRight(phone, "012")
}

// featureDistance counts how many of the three consonant feature axes
// differ between two phones. Unknown phones count as maximally distant.
func featureDistance(c1, c2 string) int {
	if c1 == c2 {
		return 0
	}
	f1, ok1 := consonantFeatures[c1]
	f2, ok2 := consonantFeatures[c2]
	if !ok1 || !ok2 {
		return 3
	}
	distance := 0
	if f1.Place != f2.Place {
		distance++
	}
	if f1.Manner != f2.Manner {
		distance++
	}
	if f1.Voiced != f2.Voiced {
		distance++
	}
	return distance
}

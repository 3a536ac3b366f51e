package rhyme

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	d := Load()

	require.NotEmpty(t, d.Words())
	require.NotEmpty(t, d.Prompts())

	assert.True(t, d.Known("cat"))
	assert.False(t, d.Known("florp"))
}

func TestLookup(t *testing.T) {
	d := Load()

	assert.Len(t, d.Lookup("cat"), 1)
	assert.Nil(t, d.Lookup("florp"))

	// Alternate pronunciations fold into one entry.
	assert.Len(t, d.Lookup("read"), 2)
	assert.Len(t, d.Lookup("orange"), 2)

	// Lookup normalizes.
	assert.Equal(t, d.Lookup("cat"), d.Lookup("  CAT "))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "cat", Normalize("  CaT\n"))
}

func TestPlausibleToken(t *testing.T) {
	assert.True(t, PlausibleToken("florp"))
	assert.True(t, PlausibleToken("o'clock"))
	assert.True(t, PlausibleToken("well-read"))
	assert.False(t, PlausibleToken("two words"))
	assert.False(t, PlausibleToken("nope123"))
	assert.False(t, PlausibleToken(""))
	assert.False(t, PlausibleToken("-dash"))
}

func TestRime(t *testing.T) {
	assert.Equal(t, []string{"AE1", "T"}, Rime(Pronunciation{"K", "AE1", "T"}))

	// Last stressed vowel wins over earlier primary stress.
	assert.Equal(t, []string{"AY2", "T"}, Rime(Pronunciation{"IH1", "N", "S", "AY2", "T"}))

	// No stressed vowel: fall back to the last vowel.
	assert.Equal(t, []string{"AH0"}, Rime(Pronunciation{"DH", "AH0"}))

	// No vowel at all.
	assert.Nil(t, Rime(Pronunciation{"SH"}))
}

func TestRimeDisplay(t *testing.T) {
	d := Load()

	assert.Equal(t, "AE T", d.RimeDisplay("cat"))
	assert.Equal(t, "IY D / EH D", d.RimeDisplay("read"))
	assert.Equal(t, "", d.RimeDisplay("florp"))
}

func TestRhymeCount(t *testing.T) {
	d := Load()

	// The -at family is one of the larger ones in the lexicon.
	assert.GreaterOrEqual(t, d.RhymeCount("cat"), 5)

	// A homograph counts partners from every pronunciation.
	assert.Greater(t, d.RhymeCount("read"), d.RhymeCount("bead"))

	assert.Equal(t, 0, d.RhymeCount("florp"))
}

func TestRank(t *testing.T) {
	d := Load()

	require.Greater(t, len(d.Words()), 1)
	first := d.Words()[0]

	assert.Equal(t, 0, d.Rank(first))
	assert.Equal(t, len(d.Words()), d.Rank("florp"))
}

func TestPrompts(t *testing.T) {
	d := Load()

	for _, word := range d.Prompts() {
		assert.GreaterOrEqual(t, len(word), minPromptLen, "prompt %q too short", word)
		assert.GreaterOrEqual(t, d.RhymeCount(word), minPromptRhymes, "prompt %q family too small", word)
	}

	// Short words stay out of the pool no matter how well they rhyme.
	assert.NotContains(t, d.Prompts(), "cat")
}

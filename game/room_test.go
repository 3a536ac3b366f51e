package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/rhymebox/rhyme"
)

var testEngine = rhyme.NewEngine(rhyme.Load())

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func testOptions(clock *fakeClock) Options {
	return Options{
		TurnWindow: 10 * time.Second,
		MaxPlayers: 5,
		MaxBots:    2,
		Rules:      rhyme.Preset(""),
		Clock:      clock.Now,
		Seed:       1,
	}
}

func testRoom(t *testing.T, clock *fakeClock, humans int) *Room {
	t.Helper()

	r := newRoom("testroom", 5, testEngine, testOptions(clock))
	for i := 0; i < humans; i++ {
		_, err := r.Join(string(rune('a'+i)), "")
		require.NoError(t, err)
	}
	return r
}

// rhymingWord finds a guess the current prompt accepts that is not yet
// blocked by the reuse sets.
func rhymingWord(t *testing.T, r *Room) string {
	t.Helper()

	snap := r.Snapshot("")
	word := testEngine.Choose(snap.Prompt, func(w string) bool {
		return wordKey(w) == wordKey(snap.Prompt)
	}, r.Rules())
	require.NotEmpty(t, word, "prompt %q has no playable rhyme", snap.Prompt)
	return word
}

func TestJoinAssignsStableIDs(t *testing.T) {
	r := testRoom(t, newFakeClock(), 0)

	id1, err := r.Join("client-one", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "p1", id1)

	id2, err := r.Join("client-two", "")
	require.NoError(t, err)
	assert.Equal(t, "p2", id2)

	// Rejoining maps back to the same player.
	again, err := r.Join("client-one", "")
	require.NoError(t, err)
	assert.Equal(t, id1, again)
	assert.Equal(t, id1, r.PlayerFor("client-one"))

	snap := r.Snapshot(id1)
	require.Len(t, snap.Players, 2)
	assert.Equal(t, "Ada", snap.Players[0].Label)
	assert.Equal(t, "PLAYER 2", snap.Players[1].Label)
	assert.True(t, snap.Players[0].IsSelf)
}

func TestJoinNameNormalization(t *testing.T) {
	r := testRoom(t, newFakeClock(), 0)

	id, err := r.Join("c", "  a very long name that keeps going  ")
	require.NoError(t, err)

	snap := r.Snapshot(id)
	assert.Equal(t, "a very long nam", snap.Players[0].Label)
}

func TestJoinRoomFull(t *testing.T) {
	clock := newFakeClock()
	r := newRoom("tiny", 2, testEngine, testOptions(clock))

	_, err := r.Join("a", "")
	require.NoError(t, err)
	_, err = r.Join("b", "")
	require.NoError(t, err)

	_, err = r.Join("c", "")
	assert.ErrorIs(t, err, ErrRoomFull)

	// An existing client still resolves, full or not.
	_, err = r.Join("a", "")
	assert.NoError(t, err)
}

func TestSubmitGuessAccepts(t *testing.T) {
	clock := newFakeClock()
	r := testRoom(t, clock, 2)

	before := r.Snapshot("p1")
	require.Equal(t, "p1", before.Turn)

	word := rhymingWord(t, r)
	require.NoError(t, r.SubmitGuess("p1", word, r.Rules()))

	snap := r.Snapshot("p1")
	assert.Equal(t, "p2", snap.Turn)
	assert.Equal(t, word, snap.Prompt)
	assert.Equal(t, before.RoundID+1, snap.RoundID)
	assert.GreaterOrEqual(t, snap.Players[0].Score, 1)
	assert.Equal(t, "good", snap.LastResult)
	require.NotEmpty(t, snap.History)
	assert.Equal(t, word, snap.History[0])
}

func TestSubmitGuessRejectKeepsTurn(t *testing.T) {
	clock := newFakeClock()
	r := testRoom(t, clock, 2)

	require.NoError(t, r.SubmitGuess("p1", "orange", r.Rules()))

	snap := r.Snapshot("p1")
	assert.Equal(t, "p1", snap.Turn)
	assert.Equal(t, "Not a rhyme", snap.LastEvent)
	assert.Equal(t, "bad", snap.LastResult)
	assert.Zero(t, snap.Players[0].Score)
}

func TestSubmitGuessValidation(t *testing.T) {
	clock := newFakeClock()
	r := testRoom(t, clock, 2)

	assert.ErrorIs(t, r.SubmitGuess("ghost", "cat", r.Rules()), ErrNotInRoom)
	assert.ErrorIs(t, r.SubmitGuess("p2", "cat", r.Rules()), ErrNotYourTurn)
	assert.ErrorIs(t, r.SubmitGuess("p1", "   ", r.Rules()), ErrEmptyGuess)

	r.TogglePause()
	assert.ErrorIs(t, r.SubmitGuess("p1", "cat", r.Rules()), ErrRoomPaused)
}

func TestSubmitGuessBlocksReuse(t *testing.T) {
	clock := newFakeClock()
	r := testRoom(t, clock, 2)

	word := rhymingWord(t, r)
	require.NoError(t, r.SubmitGuess("p1", word, r.Rules()))

	// The exact word and its trivial inflection are both blocked.
	require.NoError(t, r.SubmitGuess("p2", word, r.Rules()))
	snap := r.Snapshot("")
	assert.Equal(t, "Already used", snap.LastEvent)
	assert.Equal(t, "p2", snap.Turn)

	if wordKey(word+"s") == wordKey(word) {
		require.NoError(t, r.SubmitGuess("p2", word+"s", r.Rules()))
		snap = r.Snapshot("")
		assert.Equal(t, "Already used", snap.LastEvent)
	}
}

func TestSubmitGuessUnknownPlausibleQueues(t *testing.T) {
	clock := newFakeClock()
	r := testRoom(t, clock, 2)

	require.NoError(t, r.SubmitGuess("p1", "florp", r.Rules()))

	snap := r.Snapshot("")
	assert.Equal(t, "Not in rhyming dictionary", snap.LastEvent)
	assert.Equal(t, "p1", snap.Turn)

	attempts := r.Attempts()
	require.Len(t, attempts, 1)
	assert.Equal(t, "florp", attempts[0].Guess)
	assert.Equal(t, "p1", attempts[0].PlayerID)
	assert.Equal(t, snap.Prompt, attempts[0].Prompt)

	// Resubmitting the same pair does not duplicate the queue entry.
	require.NoError(t, r.SubmitGuess("p1", "florp", r.Rules()))
	assert.Len(t, r.Attempts(), 1)
}

func TestAdjudicateAcceptedPairScores(t *testing.T) {
	clock := newFakeClock()
	r := testRoom(t, clock, 2)

	prompt := r.Snapshot("").Prompt
	require.NoError(t, r.SubmitGuess("p1", "florp", r.Rules()))
	require.NoError(t, r.Adjudicate(prompt, "florp", true))
	assert.Empty(t, r.Attempts())

	// The same pair now short-circuits to an accept.
	require.NoError(t, r.SubmitGuess("p1", "florp", r.Rules()))

	snap := r.Snapshot("")
	assert.Equal(t, "florp", snap.Prompt)
	assert.Equal(t, "p2", snap.Turn)
	assert.GreaterOrEqual(t, snap.Players[0].Score, 1)
}

func TestAdjudicateRejectedPairStaysRejected(t *testing.T) {
	clock := newFakeClock()
	r := testRoom(t, clock, 2)

	prompt := r.Snapshot("").Prompt
	require.NoError(t, r.SubmitGuess("p1", "florp", r.Rules()))
	require.NoError(t, r.Adjudicate(prompt, "florp", false))
	assert.Empty(t, r.Attempts())

	require.NoError(t, r.SubmitGuess("p1", "florp", r.Rules()))
	snap := r.Snapshot("")
	assert.Equal(t, "p1", snap.Turn)
	assert.Zero(t, snap.Players[0].Score)
}

func TestAdjudicateUnknownAttempt(t *testing.T) {
	r := testRoom(t, newFakeClock(), 2)

	assert.ErrorIs(t, r.Adjudicate("cat", "florp", true), ErrAttemptNotFound)
}

func TestTimeoutForfeitsHuman(t *testing.T) {
	clock := newFakeClock()
	r := testRoom(t, clock, 3)

	clock.Advance(11 * time.Second)

	snap := r.Snapshot("")
	assert.Equal(t, "p2", snap.Turn)
	assert.Equal(t, "Time ran out.", snap.LastEvent)
	assert.True(t, snap.Players[0].Out)

	// The lazy check is idempotent: polling again changes nothing.
	again := r.Snapshot("")
	assert.Equal(t, snap.Turn, again.Turn)
	assert.Equal(t, snap.Players[0].Out, again.Players[0].Out)
}

func TestRoundOverAwardsSurvivorBonus(t *testing.T) {
	clock := newFakeClock()
	r := testRoom(t, clock, 2)

	word := rhymingWord(t, r)
	require.NoError(t, r.SubmitGuess("p1", word, r.Rules()))
	scoreAfterAccept := r.Snapshot("").Players[0].Score

	// p2 runs out the clock; p1 survives and banks the round bonus.
	clock.Advance(11 * time.Second)

	snap := r.Snapshot("")
	assert.Equal(t, scoreAfterAccept+1, snap.Players[0].Score)
	assert.Contains(t, snap.LastEvent, "Round over")
	assert.Equal(t, "p1", snap.Turn)

	// The new round clears eliminations.
	assert.False(t, snap.Players[1].Out)
}

func TestTimedOutTurnRejectsLateGuess(t *testing.T) {
	clock := newFakeClock()
	r := testRoom(t, clock, 3)

	word := rhymingWord(t, r)
	clock.Advance(11 * time.Second)

	// The forfeit resolves before the guess is considered, so the late
	// word arrives out of turn.
	err := r.SubmitGuess("p1", word, r.Rules())
	assert.ErrorIs(t, err, ErrNotYourTurn)
}

func TestPauseBanksRemainingTime(t *testing.T) {
	clock := newFakeClock()
	r := testRoom(t, clock, 2)

	clock.Advance(4 * time.Second)
	r.TogglePause()

	// Paused rooms do not bleed time, however long they sit.
	clock.Advance(time.Hour)
	snap := r.Snapshot("")
	assert.True(t, snap.Paused)
	assert.InDelta(t, 0.6, snap.TimeLeft, 0.001)
	assert.Equal(t, "p1", snap.Turn)

	r.TogglePause()
	clock.Advance(5 * time.Second)
	snap = r.Snapshot("")
	assert.False(t, snap.Paused)
	assert.Equal(t, "p1", snap.Turn)

	clock.Advance(2 * time.Second)
	snap = r.Snapshot("")
	assert.Equal(t, "p2", snap.Turn)
}

func TestUpdateConfigRequiresPause(t *testing.T) {
	clock := newFakeClock()
	r := testRoom(t, clock, 2)

	rules := rhyme.Preset("hard")
	assert.ErrorIs(t, r.UpdateConfig(-1, &rules), ErrRoomNotPaused)

	r.TogglePause()
	require.NoError(t, r.UpdateConfig(-1, &rules))

	// New rules wait for the next round.
	assert.Equal(t, rhyme.Preset(""), r.Rules())

	r.TogglePause()
	require.NoError(t, r.NewGame(0))
	assert.Equal(t, rules, r.Rules())
}

func TestUpdateConfigAdjustsBots(t *testing.T) {
	clock := newFakeClock()
	r := testRoom(t, clock, 2)

	r.TogglePause()
	require.NoError(t, r.UpdateConfig(2, nil))
	assert.Equal(t, 2, r.BotCount())

	require.NoError(t, r.UpdateConfig(1, nil))
	assert.Equal(t, 1, r.BotCount())

	assert.ErrorIs(t, r.UpdateConfig(3, nil), ErrInvalidBotCount)
}

func TestNewGameResets(t *testing.T) {
	clock := newFakeClock()
	r := testRoom(t, clock, 2)

	word := rhymingWord(t, r)
	require.NoError(t, r.SubmitGuess("p1", word, r.Rules()))
	require.NoError(t, r.SubmitGuess("p2", "florp", r.Rules()))
	require.Len(t, r.Attempts(), 1)

	before := r.Snapshot("")
	require.NoError(t, r.NewGame(0))

	snap := r.Snapshot("")
	assert.Equal(t, before.GameID+1, snap.GameID)
	assert.Zero(t, snap.Players[0].Score)
	assert.Empty(t, snap.History)
	assert.Empty(t, r.Attempts())
	assert.Equal(t, "New game started.", snap.LastEvent)
}

func TestNewGameInvalidBotCount(t *testing.T) {
	r := testRoom(t, newFakeClock(), 2)

	assert.ErrorIs(t, r.NewGame(-1), ErrInvalidBotCount)
	assert.ErrorIs(t, r.NewGame(3), ErrInvalidBotCount)
}

func TestBotMoveTwoPhase(t *testing.T) {
	clock := newFakeClock()
	r := newRoom("bots", 5, testEngine, testOptions(clock))

	// The bot joins first, so it holds the opening turn.
	r.mu.Lock()
	require.NoError(t, r.setBotCountLocked(1))
	r.mu.Unlock()
	_, err := r.Join("human", "")
	require.NoError(t, err)

	require.Equal(t, "bot1", r.Snapshot("").Turn)

	word, err := r.RequestBotMove()
	require.NoError(t, err)
	require.NotEmpty(t, word)

	// Repeat requests return the parked word.
	again, err := r.RequestBotMove()
	require.NoError(t, err)
	assert.Equal(t, word, again)

	snap := r.Snapshot("")
	assert.True(t, snap.BotPending)
	assert.Equal(t, word, snap.BotWord)
	assert.Equal(t, "bot1", snap.BotActor)

	require.NoError(t, r.CommitBotMove())
	snap = r.Snapshot("")
	assert.Equal(t, word, snap.Prompt)
	assert.Equal(t, "p1", snap.Turn)
	botScore := snap.Players[0].Score
	assert.GreaterOrEqual(t, botScore, 1)

	// Committing twice never double-scores.
	require.NoError(t, r.CommitBotMove())
	assert.Equal(t, botScore, r.Snapshot("").Players[0].Score)
}

func TestBotMoveNotBotTurn(t *testing.T) {
	r := testRoom(t, newFakeClock(), 2)

	_, err := r.RequestBotMove()
	assert.ErrorIs(t, err, ErrNotBotTurn)
}

func TestBotTimeoutCommitsPendingWord(t *testing.T) {
	clock := newFakeClock()
	r := newRoom("bots", 5, testEngine, testOptions(clock))
	r.mu.Lock()
	require.NoError(t, r.setBotCountLocked(1))
	r.mu.Unlock()
	_, err := r.Join("human", "")
	require.NoError(t, err)

	word, err := r.RequestBotMove()
	require.NoError(t, err)
	require.NotEmpty(t, word)

	clock.Advance(11 * time.Second)

	snap := r.Snapshot("")
	assert.Equal(t, word, snap.Prompt)
	assert.Equal(t, "p1", snap.Turn)
	assert.GreaterOrEqual(t, snap.Players[0].Score, 1)
}

func TestBotTimeoutForcesMove(t *testing.T) {
	clock := newFakeClock()
	r := newRoom("bots", 5, testEngine, testOptions(clock))
	r.mu.Lock()
	require.NoError(t, r.setBotCountLocked(1))
	r.mu.Unlock()
	_, err := r.Join("human", "")
	require.NoError(t, err)

	// No request ever arrives; the expiring window makes the bot play.
	clock.Advance(11 * time.Second)

	snap := r.Snapshot("")
	assert.Equal(t, "p1", snap.Turn)
	assert.GreaterOrEqual(t, snap.Players[0].Score, 1)
}

func TestLiveInput(t *testing.T) {
	clock := newFakeClock()
	r := testRoom(t, clock, 2)

	require.NoError(t, r.RecordLiveInput("p1", "typi"))
	assert.Equal(t, "typi", r.Snapshot("").LiveInput)

	assert.ErrorIs(t, r.RecordLiveInput("p2", "sneaky"), ErrNotYourTurn)
	assert.ErrorIs(t, r.RecordLiveInput("ghost", "boo"), ErrNotInRoom)

	// Oversized input is truncated, not rejected.
	long := make([]rune, 60)
	for i := range long {
		long[i] = 'x'
	}
	require.NoError(t, r.RecordLiveInput("p1", string(long)))
	assert.Len(t, []rune(r.Snapshot("").LiveInput), maxLiveInputLen)
}

func TestLiveInputClearedOnAccept(t *testing.T) {
	clock := newFakeClock()
	r := testRoom(t, clock, 2)

	word := rhymingWord(t, r)
	require.NoError(t, r.RecordLiveInput("p1", word))
	require.NoError(t, r.SubmitGuess("p1", word, r.Rules()))

	assert.Empty(t, r.Snapshot("").LiveInput)
}

func TestReusePerGameCarriesWords(t *testing.T) {
	clock := newFakeClock()
	opts := testOptions(clock)
	opts.ReuseScope = ReusePerGame
	r := newRoom("carry", 5, testEngine, opts)
	_, err := r.Join("a", "")
	require.NoError(t, err)
	_, err = r.Join("b", "")
	require.NoError(t, err)

	word := rhymingWord(t, r)
	require.NoError(t, r.SubmitGuess("p1", word, r.Rules()))

	// End the round; the accepted word must stay blocked afterwards.
	clock.Advance(11 * time.Second)
	snap := r.Snapshot("")
	require.Contains(t, snap.LastEvent, "Round over")

	require.NoError(t, r.SubmitGuess(snap.Turn, word, r.Rules()))
	assert.Equal(t, "Already used", r.Snapshot("").LastEvent)
}

func TestReusePerRoundClearsWords(t *testing.T) {
	clock := newFakeClock()
	r := testRoom(t, clock, 2)

	word := rhymingWord(t, r)
	require.NoError(t, r.SubmitGuess("p1", word, r.Rules()))

	clock.Advance(11 * time.Second)
	snap := r.Snapshot("")
	require.Contains(t, snap.LastEvent, "Round over")

	// A fresh round forgets the old round's words. The word may or may
	// not rhyme with the new prompt, but it is no longer "Already used".
	if wordKey(snap.Prompt) != wordKey(word) {
		require.NoError(t, r.SubmitGuess(snap.Turn, word, r.Rules()))
		assert.NotEqual(t, "Already used", r.Snapshot("").LastEvent)
	}
}

func TestWordKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"bed", "bed"},
		{"beds", "bed"},
		{"running", "runn"},
		{"jumped", "jump"},
		{"boxes", "box"},
		{"sing", "sing"},
		{"red", "red"},
		{"CAT ", "cat"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, wordKey(tc.in), "wordKey(%q)", tc.in)
	}
}

func TestSnapshotTimeLeft(t *testing.T) {
	clock := newFakeClock()
	r := testRoom(t, clock, 2)

	assert.InDelta(t, 1.0, r.Snapshot("").TimeLeft, 0.001)

	clock.Advance(5 * time.Second)
	assert.InDelta(t, 0.5, r.Snapshot("").TimeLeft, 0.001)
}

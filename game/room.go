package game

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Seednode/rhymebox/rhyme"
)

// ReuseScope controls how long an accepted word stays unplayable.
type ReuseScope string

const (
	// ReusePerRound clears the used-word set whenever a fresh prompt is
	// drawn. This matches the observed behavior of the game.
	ReusePerRound ReuseScope = "round"

	// ReusePerGame keeps words unplayable until the next new game.
	ReusePerGame ReuseScope = "game"
)

// Options tunes a room. Zero values fall back to the defaults below.
type Options struct {
	TurnWindow time.Duration
	MaxPlayers int
	MaxBots    int
	ReuseScope ReuseScope
	Rules      rhyme.Config

	// Clock and Seed exist so tests can drive time and randomness.
	Clock func() time.Time
	Seed  int64
}

const (
	defaultTurnWindow = 10 * time.Second
	defaultMaxPlayers = 5
	maxNameLen        = 15
	maxLiveInputLen   = 40
	historyCap        = 16
)

func (o Options) withDefaults() Options {
	if o.TurnWindow <= 0 {
		o.TurnWindow = defaultTurnWindow
	}
	if o.MaxPlayers <= 0 {
		o.MaxPlayers = defaultMaxPlayers
	}
	if o.MaxBots <= 0 || o.MaxBots > o.MaxPlayers {
		o.MaxBots = o.MaxPlayers
	}
	if o.ReuseScope != ReusePerGame {
		o.ReuseScope = ReusePerRound
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	return o
}

// Player identity is stable for the room's lifetime; id order defines
// the default turn order.
type Player struct {
	ID    string
	Name  string
	Bot   bool
	Score int
	Out   bool
}

// Attempt is a borderline guess waiting for human adjudication.
type Attempt struct {
	Prompt   string    `json:"prompt"`
	Guess    string    `json:"guess"`
	PlayerID string    `json:"player_id"`
	At       time.Time `json:"at"`
}

type round struct {
	id              int
	prompt          string
	turn            string
	start           time.Time
	deadline        time.Time
	used            map[string]bool
	usedKeys        map[string]bool
	accepted        int
	rhymePool       int
	lastEvent       string
	lastActor       string
	lastResult      string
	lastWordActor   string
	pendingBotWord  string
	pendingBotActor string
	pendingBotSlant bool
	liveInputs      map[string]string
}

// Room owns one game's entire mutable state. Every exported method
// serializes on the room mutex, so operations on the same room are
// atomic with respect to each other; rooms never contend with one
// another. Round expiry is computed lazily from the clock on each call
// rather than by background timers.
type Room struct {
	mu sync.Mutex

	id         string
	capacity   int
	createdAt  time.Time
	lastActive time.Time

	engine *rhyme.Engine
	opts   Options
	clock  func() time.Time
	rng    *rand.Rand

	clients map[string]string
	players []*Player

	gameID int
	round  round
	rules  rhyme.Config

	pendingRules *rhyme.Config

	history     []string
	attempts    []Attempt
	attemptKeys map[string]bool
	adjudicated map[string]bool

	paused          bool
	pausedRemaining time.Duration

	liveLimit *rate.Limiter
}

func newRoom(id string, capacity int, engine *rhyme.Engine, opts Options) *Room {
	opts = opts.withDefaults()
	if capacity <= 0 || capacity > opts.MaxPlayers {
		capacity = opts.MaxPlayers
	}
	now := opts.Clock()
	r := &Room{
		id:          id,
		capacity:    capacity,
		createdAt:   now,
		lastActive:  now,
		engine:      engine,
		opts:        opts,
		clock:       opts.Clock,
		rng:         rand.New(rand.NewSource(opts.Seed)),
		clients:     make(map[string]string),
		rules:       opts.Rules,
		attemptKeys: make(map[string]bool),
		adjudicated: make(map[string]bool),
		liveLimit:   rate.NewLimiter(rate.Limit(20), 40),
	}
	r.resetGameLocked()
	return r
}

func (r *Room) ID() string {
	return r.id
}

// Rules returns the rule set in effect for the current round.
func (r *Room) Rules() rhyme.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rules
}

func (r *Room) idleSince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActive
}

func (r *Room) playerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// PlayerFor resolves a client identity to its player id, "" if the
// client never joined this room.
func (r *Room) PlayerFor(clientID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clients[clientID]
}

// Join adds a human player, or returns the existing player id when the
// same client identity rejoins. Names are trimmed and capped.
func (r *Room) Join(clientID, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchLocked()

	if id, ok := r.clients[clientID]; ok {
		if normalized := normalizeName(name); normalized != "" {
			r.playerLocked(id).Name = normalized
		}
		return id, nil
	}
	if len(r.players) >= r.capacity {
		return "", ErrRoomFull
	}
	player := r.addHumanLocked(name)
	r.clients[clientID] = player.ID
	return player.ID, nil
}

func (r *Room) addHumanLocked(name string) *Player {
	index := 1
	for _, p := range r.players {
		if !p.Bot {
			index++
		}
	}
	player := &Player{
		ID:   fmt.Sprintf("p%d", index),
		Name: normalizeName(name),
	}
	if player.Name == "" {
		player.Name = fmt.Sprintf("PLAYER %d", index)
	}
	r.players = append(r.players, player)
	if r.round.turn == "" {
		r.startTurnLocked(player.ID)
	}
	return player
}

func (r *Room) addBotLocked() *Player {
	index := 1
	for _, p := range r.players {
		if p.Bot {
			index++
		}
	}
	player := &Player{
		ID:   fmt.Sprintf("bot%d", index),
		Name: fmt.Sprintf("BOT %c", 'A'+index-1),
		Bot:  true,
	}
	r.players = append(r.players, player)
	if r.round.turn == "" {
		r.startTurnLocked(player.ID)
	}
	return player
}

func (r *Room) setBotCountLocked(target int) error {
	if target < 0 || target > r.opts.MaxBots {
		return ErrInvalidBotCount
	}
	humans := 0
	for _, p := range r.players {
		if !p.Bot {
			humans++
		}
	}
	if humans+target > r.capacity {
		return ErrRoomFull
	}

	bots := 0
	for _, p := range r.players {
		if p.Bot {
			bots++
		}
	}
	for bots < target {
		r.addBotLocked()
		bots++
	}
	if bots > target {
		kept := r.players[:0]
		removed := make(map[string]bool)
		seen := 0
		for _, p := range r.players {
			if p.Bot {
				seen++
				if seen > target {
					removed[p.ID] = true
					continue
				}
			}
			kept = append(kept, p)
		}
		r.players = kept
		if removed[r.round.turn] {
			r.startTurnLocked(r.nextTurnLocked(r.round.turn))
		}
	}
	return nil
}

// NewGame resets scores, draws a fresh prompt, picks a random first
// turn, bumps the game id, and clears prompt history, the adjudication
// queue, and the adjudication cache.
func (r *Room) NewGame(botCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchLocked()

	if botCount < 0 || botCount > r.opts.MaxBots {
		return ErrInvalidBotCount
	}
	if err := r.setBotCountLocked(botCount); err != nil {
		return err
	}
	r.resetGameLocked()
	return nil
}

// BotCount returns the number of bot players currently in the room.
func (r *Room) BotCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.botCountLocked()
}

func (r *Room) botCountLocked() int {
	bots := 0
	for _, p := range r.players {
		if p.Bot {
			bots++
		}
	}
	return bots
}

func (r *Room) resetGameLocked() {
	r.gameID++
	for _, p := range r.players {
		p.Score = 0
		p.Out = false
	}
	r.history = nil
	r.attempts = nil
	r.attemptKeys = make(map[string]bool)
	r.adjudicated = make(map[string]bool)
	r.paused = false
	r.pausedRemaining = 0
	r.round = round{id: 0}
	r.startRoundLocked(r.randomTurnLocked())
	r.setEventLocked("system", "New game started.", "info")
}

func (r *Room) randomTurnLocked() string {
	if len(r.players) == 0 {
		return ""
	}
	return r.players[r.rng.Intn(len(r.players))].ID
}

func (r *Room) startRoundLocked(turn string) {
	if r.pendingRules != nil {
		r.rules = *r.pendingRules
		r.pendingRules = nil
	}

	prompt := r.pickPromptLocked()
	r.round = round{
		id:            r.round.id + 1,
		prompt:        prompt,
		used:          map[string]bool{prompt: true},
		usedKeys:      map[string]bool{wordKey(prompt): true},
		rhymePool:     r.engine.Dict().RhymeCount(prompt),
		lastEvent:     r.round.lastEvent,
		lastActor:     r.round.lastActor,
		lastResult:    r.round.lastResult,
		lastWordActor: "system",
		liveInputs:    make(map[string]string),
	}
	for _, p := range r.players {
		p.Out = false
	}
	r.startTurnLocked(turn)
}

func (r *Room) pickPromptLocked() string {
	prompts := r.engine.Dict().Prompts()
	if len(prompts) == 0 {
		return ""
	}
	return prompts[r.rng.Intn(len(prompts))]
}

func (r *Room) startTurnLocked(turn string) {
	now := r.clock()
	r.round.turn = turn
	r.round.start = now
	r.round.deadline = now.Add(r.opts.TurnWindow)
	r.round.pendingBotWord = ""
	r.round.pendingBotActor = ""
	r.round.pendingBotSlant = false
	if turn != "" {
		r.round.liveInputs[turn] = ""
	}
}

func (r *Room) playerLocked(id string) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) isBotLocked(id string) bool {
	p := r.playerLocked(id)
	return p != nil && p.Bot
}

func (r *Room) nextTurnLocked(from string) string {
	if len(r.players) == 0 {
		return ""
	}
	start := -1
	for i, p := range r.players {
		if p.ID == from {
			start = i
			break
		}
	}
	for offset := 1; offset <= len(r.players); offset++ {
		candidate := r.players[(start+offset)%len(r.players)]
		if !candidate.Out {
			return candidate.ID
		}
	}
	return r.players[0].ID
}

func (r *Room) eligibleLocked() []string {
	var out []string
	for _, p := range r.players {
		if !p.Out {
			out = append(out, p.ID)
		}
	}
	return out
}

func (r *Room) setEventLocked(actor, event, result string) {
	r.round.lastEvent = event
	r.round.lastActor = actor
	r.round.lastResult = result
}

func (r *Room) awardLocked(id string, points int) {
	if points <= 0 {
		return
	}
	if p := r.playerLocked(id); p != nil {
		p.Score += points
	}
}

func (r *Room) touchLocked() {
	r.lastActive = r.clock()
}

// checkTimeoutLocked resolves an expired turn. It is invoked lazily on
// every read and mutation; calling it twice with no intervening change
// is a no-op because resolving the turn re-bases the deadline.
func (r *Room) checkTimeoutLocked() {
	if r.paused || r.round.turn == "" {
		return
	}
	if r.clock().Before(r.round.deadline) {
		return
	}

	turn := r.round.turn
	if r.isBotLocked(turn) {
		// A bot with a committed-choice pending just scores it; one with
		// no move left is forced to pick, and forfeits on exhaustion.
		if r.round.pendingBotWord != "" {
			r.commitBotLocked()
			return
		}
		word := r.chooseBotWordLocked()
		if word != "" {
			r.round.pendingBotWord = word
			r.round.pendingBotActor = turn
			r.round.pendingBotSlant = r.engine.Evaluate(r.round.prompt, word, r.rules).UsedSlant
			r.commitBotLocked()
			return
		}
		r.setEventLocked(turn, "No rhymes left.", "bad")
		r.forfeitLocked(turn)
		return
	}

	r.setEventLocked(turn, "Time ran out.", "bad")
	r.forfeitLocked(turn)
}

func (r *Room) forfeitLocked(turn string) {
	r.round.pendingBotWord = ""
	r.round.pendingBotActor = ""
	r.round.pendingBotSlant = false
	r.round.liveInputs[turn] = ""
	if p := r.playerLocked(turn); p != nil {
		p.Out = true
	}
	r.afterOutLocked()
}

// afterOutLocked ends the round when at most one eligible player
// remains: the survivor banks a bonus equal to the accepted words this
// round, and a fresh prompt is drawn. Otherwise the turn just rotates.
func (r *Room) afterOutLocked() {
	eligible := r.eligibleLocked()
	if len(eligible) > 1 {
		r.startTurnLocked(r.nextTurnLocked(r.round.turn))
		return
	}

	winner := r.round.lastWordActor
	if len(eligible) == 1 {
		winner = eligible[0]
	}
	if winner == "" || winner == "system" {
		winner = r.nextTurnLocked(r.round.turn)
	}
	if r.round.accepted > 0 {
		r.awardLocked(winner, r.round.accepted)
		r.setEventLocked(winner, fmt.Sprintf("Round over. +%d points", r.round.accepted), "good")
	}

	var carryUsed, carryKeys map[string]bool
	if r.opts.ReuseScope == ReusePerGame {
		carryUsed, carryKeys = r.round.used, r.round.usedKeys
	}
	r.startRoundLocked(winner)
	for w := range carryUsed {
		r.round.used[w] = true
	}
	for k := range carryKeys {
		r.round.usedKeys[k] = true
	}
}

// SubmitGuess evaluates a guess from the player whose turn it is. A
// clean accept scores, chains the guess as the new prompt, and rotates
// the turn; a reject leaves the turn in place so the player may retry
// until the clock runs out; a borderline enqueues a rhyme attempt for
// adjudication and otherwise behaves like a reject.
func (r *Room) SubmitGuess(playerID, guess string, cfg rhyme.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchLocked()
	r.checkTimeoutLocked()

	if r.playerLocked(playerID) == nil {
		return ErrNotInRoom
	}
	if r.paused {
		return ErrRoomPaused
	}
	if r.round.turn != playerID {
		return ErrNotYourTurn
	}
	if strings.TrimSpace(guess) == "" {
		return ErrEmptyGuess
	}

	normalized := rhyme.Normalize(guess)
	key := wordKey(normalized)
	if r.round.used[normalized] || r.round.usedKeys[key] {
		r.setEventLocked(playerID, "Already used", "bad")
		return nil
	}

	if r.adjudicated[pairKey(r.round.prompt, normalized)] {
		r.acceptGuessLocked(playerID, normalized, true, cfg.SlantBonus)
		return nil
	}

	res := r.engine.Evaluate(r.round.prompt, normalized, cfg)
	switch res.Verdict {
	case rhyme.Accept:
		r.acceptGuessLocked(playerID, normalized, res.UsedSlant, cfg.SlantBonus)
	case rhyme.Borderline:
		r.enqueueAttemptLocked(playerID, normalized)
		r.setEventLocked(playerID, "Too close to call, sent for review", "bad")
		r.round.liveInputs[playerID] = ""
	default:
		if !r.engine.Dict().Known(normalized) && rhyme.PlausibleToken(normalized) {
			// Dictionary gap rather than a clear miss; let a human rule
			// on it for next time.
			r.enqueueAttemptLocked(playerID, normalized)
			r.setEventLocked(playerID, "Not in rhyming dictionary", "bad")
		} else {
			r.setEventLocked(playerID, "Not a rhyme", "bad")
		}
		r.round.liveInputs[playerID] = ""
	}
	return nil
}

func (r *Room) acceptGuessLocked(playerID, word string, usedSlant, slantBonus bool) {
	points := 1
	event := "Correct!"
	if usedSlant && slantBonus {
		points++
		event = "Correct! +1 slant bonus"
	}
	r.awardLocked(playerID, points)
	r.setEventLocked(playerID, event, "good")

	r.round.used[word] = true
	r.round.usedKeys[wordKey(word)] = true
	r.round.accepted++
	r.round.prompt = word
	r.round.rhymePool = r.engine.Dict().RhymeCount(word)
	r.round.lastWordActor = playerID
	r.round.id++
	r.round.liveInputs[playerID] = ""

	r.history = append([]string{word}, r.history...)
	if len(r.history) > historyCap {
		r.history = r.history[:historyCap]
	}

	r.startTurnLocked(r.nextTurnLocked(playerID))
}

func (r *Room) enqueueAttemptLocked(playerID, guess string) {
	key := pairKey(r.round.prompt, guess)
	if r.attemptKeys[key] {
		return
	}
	r.attemptKeys[key] = true
	r.attempts = append(r.attempts, Attempt{
		Prompt:   r.round.prompt,
		Guess:    guess,
		PlayerID: playerID,
		At:       r.clock(),
	})
}

func (r *Room) chooseBotWordLocked() string {
	used := r.round.usedKeys
	return r.engine.Choose(r.round.prompt, func(word string) bool {
		return r.round.used[word] || used[wordKey(word)]
	}, r.rules)
}

// RequestBotMove picks the current bot's word and parks it as a pending
// move so the client can animate it before committing. Repeat calls
// while a move is pending return the same word.
func (r *Room) RequestBotMove() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkTimeoutLocked()

	if r.paused {
		return "", ErrRoomPaused
	}
	turn := r.round.turn
	if !r.isBotLocked(turn) {
		return "", ErrNotBotTurn
	}
	if r.round.pendingBotWord != "" {
		return r.round.pendingBotWord, nil
	}

	word := r.chooseBotWordLocked()
	if word == "" {
		r.setEventLocked(turn, "No rhymes left.", "bad")
		r.forfeitLocked(turn)
		return "", nil
	}
	r.round.pendingBotWord = word
	r.round.pendingBotActor = turn
	r.round.pendingBotSlant = r.engine.Evaluate(r.round.prompt, word, r.rules).UsedSlant
	r.round.liveInputs[turn] = word
	return word, nil
}

// CommitBotMove finalizes a pending bot move exactly as a human accept.
// Calling it with no move pending is a no-op, which absorbs duplicate
// client retries.
func (r *Room) CommitBotMove() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkTimeoutLocked()

	if r.paused {
		return ErrRoomPaused
	}
	if r.round.pendingBotWord == "" {
		return nil
	}
	r.commitBotLocked()
	return nil
}

func (r *Room) commitBotLocked() {
	actor := r.round.pendingBotActor
	word := r.round.pendingBotWord
	slant := r.round.pendingBotSlant
	r.round.pendingBotWord = ""
	r.round.pendingBotActor = ""
	r.round.pendingBotSlant = false
	r.acceptGuessLocked(actor, word, slant, r.rules.SlantBonus)
}

// TogglePause flips the paused flag. Pausing freezes timer accounting
// by banking the remaining window; resuming re-bases the deadline.
func (r *Room) TogglePause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchLocked()

	now := r.clock()
	if r.paused {
		r.paused = false
		r.round.start = now
		r.round.deadline = now.Add(r.pausedRemaining)
		r.pausedRemaining = 0
		return
	}
	r.checkTimeoutLocked()
	r.paused = true
	r.pausedRemaining = max(r.round.deadline.Sub(now), 0)
}

// UpdateConfig adjusts the bot roster and, optionally, the room's rule
// set; new rules take effect from the next round. Valid only while
// paused. Pass botCount < 0 to leave the roster alone.
func (r *Room) UpdateConfig(botCount int, rules *rhyme.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchLocked()

	if !r.paused {
		return ErrRoomNotPaused
	}
	if botCount >= 0 {
		if err := r.setBotCountLocked(botCount); err != nil {
			return err
		}
	}
	if rules != nil {
		pending := *rules
		r.pendingRules = &pending
	}
	return nil
}

// RecordLiveInput stores the current player's in-progress text for
// display to observers. Best-effort: rate-limited, last write wins,
// never affects scoring.
func (r *Room) RecordLiveInput(playerID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkTimeoutLocked()

	if r.playerLocked(playerID) == nil {
		return ErrNotInRoom
	}
	if r.paused {
		return ErrRoomPaused
	}
	if r.round.turn != playerID {
		return ErrNotYourTurn
	}
	if !r.liveLimit.Allow() {
		return nil
	}
	runes := []rune(text)
	if len(runes) > maxLiveInputLen {
		runes = runes[:maxLiveInputLen]
	}
	r.round.liveInputs[playerID] = string(runes)
	return nil
}

// Attempts returns the unresolved adjudication queue.
func (r *Room) Attempts() []Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Attempt, len(r.attempts))
	copy(out, r.attempts)
	return out
}

// Adjudicate resolves a queued rhyme attempt. Acceptance is cached for
// the rest of the game so the identical pair short-circuits to accept;
// the turn that originally resolved as a reject is not revisited.
func (r *Room) Adjudicate(prompt, guess string, accepted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchLocked()

	key := pairKey(rhyme.Normalize(prompt), rhyme.Normalize(guess))
	if !r.attemptKeys[key] {
		return ErrAttemptNotFound
	}
	delete(r.attemptKeys, key)
	kept := r.attempts[:0]
	for _, attempt := range r.attempts {
		if pairKey(attempt.Prompt, attempt.Guess) != key {
			kept = append(kept, attempt)
		}
	}
	r.attempts = kept
	if accepted {
		r.adjudicated[key] = true
	}
	return nil
}

func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	runes := []rune(name)
	if len(runes) > maxNameLen {
		runes = runes[:maxNameLen]
	}
	return string(runes)
}

// wordKey stems common suffixes so trivial inflections of an accepted
// word cannot be replayed ("bed" blocks "beds").
func wordKey(word string) string {
	w := rhyme.Normalize(word)
	for _, suffix := range []string{"ing", "ed", "es", "s"} {
		if strings.HasSuffix(w, suffix) && len(w) > len(suffix)+2 {
			return w[:len(w)-len(suffix)]
		}
	}
	return w
}

func pairKey(prompt, guess string) string {
	return rhyme.Normalize(prompt) + "\x00" + rhyme.Normalize(guess)
}

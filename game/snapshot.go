package game

// PlayerView is one entry in the snapshot's player list.
type PlayerView struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Score       int    `json:"score"`
	Out         bool   `json:"out"`
	Bot         bool   `json:"bot"`
	IsSelf      bool   `json:"is_self"`
	CardClass   string `json:"card_class"`
	AvatarClass string `json:"avatar_class"`
}

// Snapshot is the consistent read surface clients poll. Remaining time
// is a 0..1 fraction of the turn window rather than an absolute
// timestamp, which keeps the protocol tolerant of client clock skew.
type Snapshot struct {
	RoomID          string       `json:"room_id"`
	Prompt          string       `json:"prompt"`
	Turn            string       `json:"turn"`
	TimeLeft        float64      `json:"time_left"`
	RoundID         int          `json:"round_id"`
	GameID          int          `json:"game_id"`
	LastEvent       string       `json:"last_event"`
	LastActor       string       `json:"last_actor"`
	LastResult      string       `json:"last_result"`
	BotPending      bool         `json:"bot_pending"`
	BotWord         string       `json:"bot_word"`
	BotActor        string       `json:"bot_actor"`
	Paused          bool         `json:"paused"`
	BotCount        int          `json:"bot_count"`
	LiveInput       string       `json:"live_input"`
	RimeDisplay     string       `json:"rhyme_part_display"`
	RemainingRhymes int          `json:"remaining_rhymes"`
	History         []string     `json:"history"`
	SelfID          string       `json:"self_id,omitempty"`
	Players         []PlayerView `json:"players"`
}

var cardClasses = []string{"player-one", "player-two", "player-three", "player-four", "player-five"}

// Snapshot returns a consistent view of the room for one client. The
// lazy timeout check runs first, so polling alone is enough to keep a
// room's clock honest.
func (r *Room) Snapshot(selfID string) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkTimeoutLocked()

	snap := Snapshot{
		RoomID:          r.id,
		Prompt:          r.round.prompt,
		Turn:            r.round.turn,
		TimeLeft:        r.timeLeftLocked(),
		RoundID:         r.round.id,
		GameID:          r.gameID,
		LastEvent:       r.round.lastEvent,
		LastActor:       r.round.lastActor,
		LastResult:      r.round.lastResult,
		BotPending:      r.round.pendingBotWord != "",
		BotWord:         r.round.pendingBotWord,
		BotActor:        r.round.pendingBotActor,
		Paused:          r.paused,
		BotCount:        r.botCountLocked(),
		LiveInput:       r.round.liveInputs[r.round.turn],
		RimeDisplay:     r.engine.Dict().RimeDisplay(r.round.prompt),
		RemainingRhymes: max(r.round.rhymePool-r.round.accepted, 0),
		History:         append([]string(nil), r.history...),
		SelfID:          selfID,
	}

	snap.Players = make([]PlayerView, 0, len(r.players))
	for i, p := range r.players {
		card := cardClasses[len(cardClasses)-1]
		if i < len(cardClasses) {
			card = cardClasses[i]
		}
		avatar := "player"
		if p.Bot {
			avatar = p.ID
		}
		snap.Players = append(snap.Players, PlayerView{
			ID:          p.ID,
			Label:       p.Name,
			Score:       p.Score,
			Out:         p.Out,
			Bot:         p.Bot,
			IsSelf:      p.ID == selfID,
			CardClass:   card,
			AvatarClass: avatar,
		})
	}

	return snap
}

func (r *Room) timeLeftLocked() float64 {
	window := r.opts.TurnWindow.Seconds()
	if window <= 0 {
		return 0
	}
	var remaining float64
	if r.paused {
		remaining = r.pausedRemaining.Seconds()
	} else {
		remaining = r.round.deadline.Sub(r.clock()).Seconds()
	}
	if remaining < 0 {
		remaining = 0
	}
	return min(remaining/window, 1)
}

package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// StateName tags the pending multi-turn interaction of a conversation.
type StateName string

const (
	StateIdle                   StateName = "idle"
	StateFileSelection          StateName = "awaiting_file_selection"
	StateDeleteConfirmation     StateName = "awaiting_delete_confirmation"
	StateVideoSelection         StateName = "awaiting_video_selection"
	StateChannelSelection       StateName = "awaiting_channel_selection"
	StateAnimeSelection         StateName = "awaiting_anime_selection"
	StateEpisodeSelection       StateName = "awaiting_episode_selection"
	StateQualitySelection       StateName = "awaiting_quality_selection"
	StateAutomationConfirmation StateName = "awaiting_automation_confirmation"
	StateMusicSelection         StateName = "awaiting_music_selection"
	StateCookieText             StateName = "awaiting_cookie_text"
)

// ConversationState is a closed union; only the payload types below implement it.
type ConversationState interface {
	Name() StateName
	isConversationState()
}

type FileSelection struct {
	Files []StoredFile `json:"files"`
}

type DeleteConfirmation struct {
	Files []StoredFile `json:"files"`
}

type VideoSelection struct {
	Videos []Video `json:"videos"`
	Origin string  `json:"origin,omitempty"` // search query or channel name
}

type ChannelSelection struct {
	Channels []Channel `json:"channels"`
}

type AnimeSelection struct {
	Results []Anime `json:"results"`
}

type EpisodeSelection struct {
	Anime    Anime     `json:"anime"`
	Episodes []Episode `json:"episodes"`
}

// QualitySelection carries the chosen episodes and the options offered for the first of them.
type QualitySelection struct {
	Anime     Anime     `json:"anime"`
	Episodes  []Episode `json:"episodes"`
	Qualities []Quality `json:"qualities"`
}

type AutomationConfirmation struct {
	Anime    Anime     `json:"anime"`
	Episodes []Episode `json:"episodes"`
	Quality  string    `json:"quality"`
}

type MusicSelection struct {
	Tracks []Track `json:"tracks"`
}

type CookieText struct{}

func (FileSelection) Name() StateName          { return StateFileSelection }
func (DeleteConfirmation) Name() StateName     { return StateDeleteConfirmation }
func (VideoSelection) Name() StateName         { return StateVideoSelection }
func (ChannelSelection) Name() StateName       { return StateChannelSelection }
func (AnimeSelection) Name() StateName         { return StateAnimeSelection }
func (EpisodeSelection) Name() StateName       { return StateEpisodeSelection }
func (QualitySelection) Name() StateName       { return StateQualitySelection }
func (AutomationConfirmation) Name() StateName { return StateAutomationConfirmation }
func (MusicSelection) Name() StateName         { return StateMusicSelection }
func (CookieText) Name() StateName             { return StateCookieText }

func (FileSelection) isConversationState()          {}
func (DeleteConfirmation) isConversationState()     {}
func (VideoSelection) isConversationState()         {}
func (ChannelSelection) isConversationState()       {}
func (AnimeSelection) isConversationState()         {}
func (EpisodeSelection) isConversationState()       {}
func (QualitySelection) isConversationState()       {}
func (AutomationConfirmation) isConversationState() {}
func (MusicSelection) isConversationState()         {}
func (CookieText) isConversationState()             {}

// StateEntry is what a state store holds for one conversation.
type StateEntry struct {
	State     ConversationState
	CreatedAt time.Time
}

type stateEnvelope struct {
	Kind      StateName       `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

// MarshalJSON writes the entry as a kind-tagged envelope.
func (e StateEntry) MarshalJSON() ([]byte, error) {
	if e.State == nil {
		return nil, fmt.Errorf("marshal state entry: nil state")
	}
	payload, err := json.Marshal(e.State)
	if err != nil {
		return nil, err
	}
	return json.Marshal(stateEnvelope{Kind: e.State.Name(), CreatedAt: e.CreatedAt, Payload: payload})
}

func (e *StateEntry) UnmarshalJSON(b []byte) error {
	var env stateEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	st, err := decodeState(env.Kind, env.Payload)
	if err != nil {
		return err
	}
	e.State = st
	e.CreatedAt = env.CreatedAt
	return nil
}

func decodeState(kind StateName, raw json.RawMessage) (ConversationState, error) {
	switch kind {
	case StateFileSelection:
		return decodeInto[FileSelection](raw)
	case StateDeleteConfirmation:
		return decodeInto[DeleteConfirmation](raw)
	case StateVideoSelection:
		return decodeInto[VideoSelection](raw)
	case StateChannelSelection:
		return decodeInto[ChannelSelection](raw)
	case StateAnimeSelection:
		return decodeInto[AnimeSelection](raw)
	case StateEpisodeSelection:
		return decodeInto[EpisodeSelection](raw)
	case StateQualitySelection:
		return decodeInto[QualitySelection](raw)
	case StateAutomationConfirmation:
		return decodeInto[AutomationConfirmation](raw)
	case StateMusicSelection:
		return decodeInto[MusicSelection](raw)
	case StateCookieText:
		return CookieText{}, nil
	default:
		return nil, fmt.Errorf("unknown state kind %q", kind)
	}
}

func decodeInto[T ConversationState](raw json.RawMessage) (ConversationState, error) {
	var v T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

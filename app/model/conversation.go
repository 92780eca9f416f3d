package model

import (
	"maps"
	"time"
)

// ConversationState is the mutable aggregate tracked per match. Messages is
// append-only and chronological. ReadyToMeet is monotonic: once true the
// conversation is terminal and ReadinessTimestamp is set exactly once.
type ConversationState struct {
	MatchID            string       `json:"match_id"`
	Profile            MatchProfile `json:"profile"`
	Messages           []Message    `json:"messages"`
	LastInteraction    time.Time    `json:"last_interaction"`
	ReadyToMeet        bool         `json:"ready_to_meet"`
	ReadinessTimestamp *time.Time   `json:"readiness_timestamp,omitempty"`
}

func NewConversationState(matchID string, profile MatchProfile, now time.Time) *ConversationState {
	profile.LastMessages = nil

	return &ConversationState{
		MatchID:         matchID,
		Profile:         profile,
		LastInteraction: now,
	}
}

// Clone returns an independent copy. Callers mutate the clone and swap it in
// only after a successful save, so a failed persist leaves the original
// untouched.
func (s *ConversationState) Clone() *ConversationState {
	clone := *s

	clone.Messages = append([]Message(nil), s.Messages...)
	clone.Profile.Interests = append([]string(nil), s.Profile.Interests...)
	clone.Profile.Essentials = append([]string(nil), s.Profile.Essentials...)
	clone.Profile.Lifestyle = maps.Clone(s.Profile.Lifestyle)
	clone.Profile.LastMessages = nil

	if s.ReadinessTimestamp != nil {
		ts := *s.ReadinessTimestamp
		clone.ReadinessTimestamp = &ts
	}

	return &clone
}

// SnapshotProfile replaces the stored profile with a fresh scrape, dropping
// the transient message carrier.
func (s *ConversationState) SnapshotProfile(profile MatchProfile) {
	profile.LastMessages = nil
	s.Profile = profile
}

// Append adds one message to the history.
func (s *ConversationState) Append(text string, isReceived bool, now time.Time) {
	s.Messages = append(s.Messages, Message{
		Text:       text,
		IsReceived: isReceived,
		Timestamp:  now,
	})
}

// MarkReady flips the terminal flag. The timestamp is recorded only on the
// first transition; later calls are no-ops.
func (s *ConversationState) MarkReady(now time.Time) {
	if s.ReadyToMeet {
		return
	}

	s.ReadyToMeet = true
	ts := now.Truncate(time.Second)
	s.ReadinessTimestamp = &ts
}

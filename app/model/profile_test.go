package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProfileRenderMarksMissingFields(t *testing.T) {
	profile := MatchProfile{
		MatchID: "m1",
		Name:    "Alex",
	}

	rendered := profile.Render()

	require.Contains(t, rendered, "Name: Alex")
	require.Contains(t, rendered, "Age: N/A")
	require.Contains(t, rendered, "Bio: N/A")
	require.Contains(t, rendered, "Interests: N/A")
	require.Contains(t, rendered, "Lifestyle: N/A")
}

func TestProfileRenderIsDeterministic(t *testing.T) {
	profile := MatchProfile{
		MatchID:   "m1",
		Name:      "Sarah",
		Age:       29,
		Interests: []string{"Yoga", "Wine", "Travel", "Food"},
		Lifestyle: map[string]string{
			"Pets":     "Dog person",
			"Drinking": "Social drinker",
			"Workout":  "Regular",
			"Diet":     "Flexitarian",
		},
	}

	first := profile.Render()
	for i := 0; i < 20; i++ {
		require.Equal(t, first, profile.Render())
	}

	require.Contains(t, first, "Interests: Food, Travel, Wine, Yoga")
	require.Less(t, strings.Index(first, "Diet"), strings.Index(first, "Pets"))
}

func TestMessageRenderDirection(t *testing.T) {
	require.Equal(t, "RECEIVED: hey u", Message{Text: "hey u", IsReceived: true}.Render())
	require.Equal(t, "SENT: hello!", Message{Text: "hello!"}.Render())
}

func TestCloneIsIndependent(t *testing.T) {
	now := time.Now()

	state := NewConversationState("m1", MatchProfile{
		MatchID:   "m1",
		Name:      "Lisa",
		Lifestyle: map[string]string{"Pets": "None"},
	}, now)
	state.Append("hi", true, now)

	clone := state.Clone()
	clone.Append("hello", false, now)
	clone.Profile.Lifestyle["Pets"] = "Cat"
	clone.MarkReady(now)

	require.Len(t, state.Messages, 1)
	require.Equal(t, "None", state.Profile.Lifestyle["Pets"])
	require.False(t, state.ReadyToMeet)
	require.Nil(t, state.ReadinessTimestamp)

	require.Len(t, clone.Messages, 2)
	require.True(t, clone.ReadyToMeet)
	require.NotNil(t, clone.ReadinessTimestamp)
}

func TestMarkReadySetsTimestampOnce(t *testing.T) {
	state := NewConversationState("m1", MatchProfile{MatchID: "m1"}, time.Now())

	first := time.Date(2025, 3, 1, 18, 30, 45, 500, time.UTC)
	state.MarkReady(first)

	require.True(t, state.ReadyToMeet)
	require.Equal(t, first.Truncate(time.Second), *state.ReadinessTimestamp)

	state.MarkReady(first.Add(time.Hour))
	require.Equal(t, first.Truncate(time.Second), *state.ReadinessTimestamp)
}

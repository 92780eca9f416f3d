package conversation

// ReadinessResult is the structured verdict of the readiness agent.
type ReadinessResult struct {
	ReadyToMeet bool   `json:"ready_to_meet"`
	Rationale   string `json:"rationale"`
}

type replyInput struct {
	ProfileBlock string
	History      string
	Task         string
	VenueIdeas   []string
}

const (
	openerTask = "Generate an opening message."
	replyTask  = "Provide a direct reply to the last received message."

	// Rendered into the prompt context of an opener request. Never persisted:
	// a fresh opener stores exactly one message, the generated text itself.
	conversationStartMarker = "CONVERSATION_START"
)

package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "embed"

	"github.com/sashabaranov/go-openai"
)

//go:embed reply_prompt_template.txt
var replyPromptTemplate string

//go:embed refine_prompt_template.txt
var refinePromptTemplate string

// ReplyAgent produces opener and reply text. When a refine client is set, the
// generated text gets one tone-normalization pass; refine failures fall back
// to the raw text so the call still appends exactly one outgoing message.
type ReplyAgent struct {
	client       completionClient
	model        string
	refineClient completionClient
	refineModel  string
	personaBlock string
	timeout      time.Duration
}

func NewReplyAgent(client completionClient, model, personaBlock string, timeout time.Duration) *ReplyAgent {
	return &ReplyAgent{
		client:       client,
		model:        model,
		personaBlock: personaBlock,
		timeout:      timeout,
	}
}

func (a *ReplyAgent) WithRefine(client completionClient, model string) *ReplyAgent {
	a.refineClient = client
	a.refineModel = model

	return a
}

func (a *ReplyAgent) Call(ctx context.Context, in replyInput) (string, error) {
	venueIdeas := "None available."
	if len(in.VenueIdeas) > 0 {
		venueIdeas = strings.Join(in.VenueIdeas, "\n")
	}

	prompt := fillTemplate(replyPromptTemplate, map[string]string{
		"persona":      a.personaBlock,
		"profile":      in.ProfileBlock,
		"venue_ideas":  venueIdeas,
		"chat_history": in.History,
		"task":         in.Task,
	})

	text, err := a.complete(ctx, a.client, a.model, prompt, 0.7)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
	}

	return a.refine(ctx, text), nil
}

func (a *ReplyAgent) refine(ctx context.Context, text string) string {
	if a.refineClient == nil {
		return text
	}

	prompt := fillTemplate(refinePromptTemplate, map[string]string{
		"message": text,
	})

	refined, err := a.complete(ctx, a.refineClient, a.refineModel, prompt, 0.7)
	if err != nil {
		slog.Warn("Refinement failed, keeping raw reply", "error", err)
		return text
	}

	return refined
}

func (a *ReplyAgent) complete(ctx context.Context, client completionClient, model, prompt string, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	aiResponse, err := client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxCompletionTokens: 500,
			Temperature:         temperature,
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(aiResponse.Choices) == 0 {
		return "", fmt.Errorf("no chat completion found")
	}

	return strings.TrimSpace(aiResponse.Choices[0].Message.Content), nil
}

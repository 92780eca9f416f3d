package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	_ "embed"

	"github.com/sashabaranov/go-openai"
)

//go:embed readiness_prompt_template.txt
var readinessPromptTemplate string

// ReadinessAgent asks the model whether the match has signaled willingness to
// meet. Any transport failure or malformed structured output surfaces as
// ErrClassificationUnavailable; the engine never substitutes a default.
type ReadinessAgent struct {
	client  completionClient
	model   string
	timeout time.Duration
}

func NewReadinessAgent(client completionClient, model string, timeout time.Duration) *ReadinessAgent {
	return &ReadinessAgent{
		client:  client,
		model:   model,
		timeout: timeout,
	}
}

func (a *ReadinessAgent) Call(ctx context.Context, history string) (*ReadinessResult, error) {
	prompt := fillTemplate(readinessPromptTemplate, map[string]string{
		"conversation": history,
	})

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	aiResponse, err := a.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: a.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxCompletionTokens: 500,
			Temperature:         0,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClassificationUnavailable, err)
	}

	if len(aiResponse.Choices) == 0 {
		return nil, fmt.Errorf("%w: no chat completion found", ErrClassificationUnavailable)
	}

	result := cleanStructuredOutput(aiResponse.Choices[0].Message.Content)

	var response ReadinessResult
	if err = json.Unmarshal([]byte(result), &response); err != nil {
		return nil, fmt.Errorf("%w: malformed verdict: %w", ErrClassificationUnavailable, err)
	}

	return &response, nil
}

package conversation

import (
	"context"
	"net/http"
	"strings"
	"time"

	"wingman/app/config"
	"wingman/app/model"

	"github.com/elliotchance/pie/v2"
	"github.com/sashabaranov/go-openai"
)

// completionClient is the slice of *openai.Client the agents need. Kept small
// so tests can script responses.
type completionClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

func createClient(cfg config.ModelConfig) *openai.Client {
	clientConfig := openai.DefaultConfig(cfg.Token)

	clientConfig.BaseURL = cfg.BaseURL
	clientConfig.HTTPClient = &http.Client{
		Timeout: 30 * time.Second,
	}

	return openai.NewClientWithConfig(clientConfig)
}

func renderHistory(messages []model.Message) string {
	if len(messages) == 0 {
		return "No previous messages."
	}

	lines := pie.Map(messages, func(m model.Message) string {
		return m.Render()
	})

	return strings.Join(lines, "\n")
}

func personaProfile(p config.Persona) model.MatchProfile {
	return model.MatchProfile{
		Name:       p.Name,
		Age:        p.Age,
		Bio:        p.Bio,
		LookingFor: p.LookingFor,
		Location:   p.Location,
		Interests:  p.Interests,
		Essentials: p.Essentials,
		Lifestyle:  p.Lifestyle,
	}
}

// cleanStructuredOutput strips the markdown fences some models wrap around
// JSON responses.
func cleanStructuredOutput(raw string) string {
	result := strings.Trim(raw, "`")
	result = strings.TrimSpace(result)
	result = strings.TrimPrefix(result, "json")

	return strings.TrimSpace(result)
}

func fillTemplate(template string, values map[string]string) string {
	prompt := template
	for key, value := range values {
		prompt = strings.ReplaceAll(prompt, "{"+key+"}", value)
	}

	return prompt
}

// Package llm provides the optional language-model client used for
// naturalistic buyer replies. The engine runs fully without it.
package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/dealprobe/dealprobe/pkg/sim"
)

// OpenAIModel implements sim.LanguageModel over a chat completion API.
type OpenAIModel struct {
	client *openai.Client
	model  shared.ChatModel
}

var _ sim.LanguageModel = &OpenAIModel{}

func NewOpenAIModel(baseURL, apiKey, model string) (*OpenAIModel, error) {
	if baseURL == "" || apiKey == "" {
		return nil, fmt.Errorf("both base URL and API key must be provided to create a language model client")
	}

	chatModel := shared.ChatModel(model)
	if model == "" {
		chatModel = openai.ChatModelGPT4
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &OpenAIModel{client: &client, model: chatModel}, nil
}

func (m *OpenAIModel) Complete(ctx context.Context, prompt string) (string, error) {
	completion, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: m.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}

	return completion.Choices[0].Message.Content, nil
}

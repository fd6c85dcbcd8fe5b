// Package agent provides agent-under-test invokers for the simulation
// engine.
package agent

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/dealprobe/dealprobe/pkg/scenario"
	"github.com/dealprobe/dealprobe/pkg/sim"
)

// DefaultCostPerToken is a rough blended completion rate used when no
// explicit rate is configured; the tolerance checks only need a
// consistent estimate, not billing-grade accuracy.
const DefaultCostPerToken = 0.000002

// OpenAIAgent drives a chat-completion-backed sales agent as the agent
// under test. The client is stateless and safe to share across
// concurrent runs.
type OpenAIAgent struct {
	client       *openai.Client
	model        shared.ChatModel
	systemPrompt string
	costPerToken float64
}

var _ sim.AgentInvoker = &OpenAIAgent{}

func NewOpenAIAgent(baseURL, apiKey, model, systemPrompt string) (*OpenAIAgent, error) {
	if baseURL == "" || apiKey == "" {
		return nil, fmt.Errorf("both base URL and API key must be provided to create an openai agent")
	}

	chatModel := shared.ChatModel(model)
	if model == "" {
		chatModel = openai.ChatModelGPT4
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &OpenAIAgent{
		client:       &client,
		model:        chatModel,
		systemPrompt: systemPrompt,
		costPerToken: DefaultCostPerToken,
	}, nil
}

// WithCostPerToken overrides the per-token cost estimate.
func (a *OpenAIAgent) WithCostPerToken(rate float64) *OpenAIAgent {
	a.costPerToken = rate
	return a
}

func (a *OpenAIAgent) Invoke(ctx context.Context, conversation []sim.Turn, sc scenario.Scenario) (*sim.AgentResponse, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}

	systemPrompt := a.systemPrompt
	if systemPrompt == "" {
		systemPrompt = "You are a sales representative speaking with a prospective buyer."
	}
	if sc.Vertical != "" {
		systemPrompt += fmt.Sprintf(" The prospect operates in the %s vertical.", sc.Vertical)
	}
	messages = append(messages, openai.SystemMessage(systemPrompt))

	// The buyer speaks as the user; the agent's own prior turns are
	// assistant messages.
	for _, t := range conversation {
		if t.Speaker == sim.SpeakerAgent {
			messages = append(messages, openai.AssistantMessage(t.Content))
		} else {
			messages = append(messages, openai.UserMessage(t.Content))
		}
	}

	completion, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    a.model,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no completion choices returned")
	}

	tokens := int(completion.Usage.TotalTokens)
	return &sim.AgentResponse{
		Content:    completion.Choices[0].Message.Content,
		TokensUsed: tokens,
		CostUSD:    float64(tokens) * a.costPerToken,
	}, nil
}

package upstream

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const assistantPrompt = "You are the assistant on a language-learning center's website. " +
	"Answer questions about courses, pricing, teachers and enrollment briefly and politely. " +
	"Reply in the language the visitor writes in."

// OpenAI answers chat messages directly from a completion model, for
// deployments that run without an automation webhook.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, model string) *OpenAI {
	return &OpenAI{client: openai.NewClient(apiKey), model: model}
}

func (o *OpenAI) Reply(ctx context.Context, out Outbound) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: assistantPrompt},
			{Role: openai.ChatMessageRoleUser, Content: out.Message},
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var _ Upstream = (*OpenAI)(nil)

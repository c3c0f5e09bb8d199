package gateway

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/gideon-bot/internal/models"
)

// Apology strings returned when the completion endpoint fails. These flow
// through the normal reply path; a gateway failure never fails a dispatch.
const (
	APIErrorReply       = "Sorry, I couldn't generate an answer right now (OpenAI error)."
	TransportErrorReply = "Sorry, something went wrong with my assistant brain (OpenAI error)."
)

const (
	completionTimeout = 30 * time.Second
	routeMaxTokens    = 16

	// routeTemperature is effectively zero. An exact 0 is dropped from the
	// request by the client's omitempty tag, which would leave the call at
	// the API's default temperature instead of deterministic.
	routeTemperature = math.SmallestNonzeroFloat32
)

// chatClient is the slice of the OpenAI client used here, for test fakes.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Gateway struct {
	client      chatClient
	model       string
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

func New(apiKey, model string, maxTokens int, temperature float64, logger *zap.Logger) *Gateway {
	return &Gateway{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

// Complete asks the completion endpoint for a response to one inbound
// message, with the last turns of the channel as context. It never returns
// an error: timeouts, transport failures and non-success statuses all
// degrade to a fixed apology that is sent to the user like any other reply.
func (g *Gateway) Complete(ctx context.Context, message string, botNames []string, history []models.ConversationTurn, persona models.Persona, channelName string) string {
	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt(persona, botNames, channelName),
	})
	for _, turn := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   g.maxTokens,
		Temperature: float32(g.temperature),
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			g.logger.Error("OpenAI API returned an error",
				zap.Int("status", apiErr.HTTPStatusCode),
				zap.Error(err))
			return APIErrorReply
		}
		g.logger.Error("OpenAI API failure", zap.Error(err))
		return TransportErrorReply
	}
	if len(resp.Choices) == 0 {
		g.logger.Error("OpenAI API returned no choices")
		return APIErrorReply
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content)
}

// Route asks the model to pick exactly one label from a fixed set. It runs
// at temperature zero with a tiny token budget, intended for deterministic
// selection calls rather than conversation.
func (g *Gateway) Route(ctx context.Context, question string, labels []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	prompt := fmt.Sprintf(
		"Answer with exactly one of the following labels and nothing else: %s\n\nQuestion: %s",
		strings.Join(labels, ", "), question)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   routeMaxTokens,
		Temperature: routeTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("route call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("route call returned no choices")
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	for _, label := range labels {
		if strings.EqualFold(answer, label) {
			return label, nil
		}
	}
	return "", fmt.Errorf("route call answered %q, not one of the labels", answer)
}

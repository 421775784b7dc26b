package inference

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"

	domainmodel "github.com/creedpetitt/ai-services-backend/internal/domain/model"
	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/metrics"
	chatclient "github.com/creedpetitt/ai-services-backend/internal/utils/httpclients/chat"
)

// chatBackend exposes one provider model through the model.Backend interface.
type chatBackend struct {
	name            string
	provider        string
	supportsImages  bool
	promptPrice     decimal.Decimal
	completionPrice decimal.Decimal
	client          *chatclient.CompletionClient
}

var _ domainmodel.Backend = (*chatBackend)(nil)
var _ domainmodel.Pricing = (*chatBackend)(nil)

func (b *chatBackend) Name() string {
	return b.name
}

func (b *chatBackend) SupportsImages() bool {
	return b.supportsImages
}

func (b *chatBackend) ProviderName() string {
	return b.provider
}

func (b *chatBackend) PromptPrice() decimal.Decimal {
	return b.promptPrice
}

func (b *chatBackend) CompletionPrice() decimal.Decimal {
	return b.completionPrice
}

// Stream implements model.Backend by translating the prompt into an
// OpenAI-compatible request and relaying the SSE delta stream.
func (b *chatBackend) Stream(ctx context.Context, prompt domainmodel.Prompt) (<-chan string, <-chan error, error) {
	request := openai.ChatCompletionRequest{
		Model:    b.name,
		Messages: buildMessages(prompt),
	}

	fragments, errs, err := b.client.StreamChatCompletion(ctx, request)
	if err != nil {
		metrics.RecordProviderError(b.provider, "connect")
		return nil, nil, err
	}
	return b.instrument(ctx, fragments, errs)
}

// instrument relays the stream through a single goroutine, counting
// fragments and terminal provider errors. The terminal error is forwarded
// only once every queued fragment has been relayed, so a failure can never
// overtake the text produced before it. The relay exits on cancellation so
// an abandoned consumer cannot strand it.
func (b *chatBackend) instrument(ctx context.Context, fragments <-chan string, errs <-chan error) (<-chan string, <-chan error, error) {
	outFragments := make(chan string)
	outErrs := make(chan error, 1)

	go func() {
		defer close(outFragments)
		defer close(outErrs)
		for fragment := range fragments {
			metrics.RecordStreamFragment(b.name)
			select {
			case outFragments <- fragment:
			case <-ctx.Done():
				return
			}
		}
		// The client queues its terminal error before closing the fragment
		// channel, so a non-blocking check here cannot miss it.
		select {
		case err := <-errs:
			if err != nil {
				metrics.RecordProviderError(b.provider, "stream")
				outErrs <- err
			}
		default:
		}
	}()

	return outFragments, outErrs, nil
}

func buildMessages(prompt domainmodel.Prompt) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(prompt.Turns)+1)

	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: prompt.System,
		})
	}

	for _, turn := range prompt.Turns {
		role := openai.ChatMessageRoleUser
		if turn.Role == domainmodel.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}

		if turn.ImageURL != "" {
			messages = append(messages, openai.ChatCompletionMessage{
				Role: role,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: turn.Content},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: turn.ImageURL},
					},
				},
			})
			continue
		}

		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}

	return messages
}

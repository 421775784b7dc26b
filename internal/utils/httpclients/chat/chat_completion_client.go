package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"resty.dev/v3"

	"github.com/creedpetitt/ai-services-backend/internal/infrastructure/logger"
	"github.com/creedpetitt/ai-services-backend/internal/utils/platformerrors"
)

const (
	requestTimeout       = 120 * time.Second
	channelBufferSize    = 100
	errorBufferSize      = 10
	dataPrefix           = "data: "
	doneMarker           = "[DONE]"
	scannerInitialBuffer = 12 * 1024        // 12KB
	scannerMaxBuffer     = 10 * 1024 * 1024 // 10MB
)

type StreamOption func(*resty.Request)

func WithHeader(key, value string) StreamOption {
	return func(r *resty.Request) {
		if strings.TrimSpace(key) == "" {
			return
		}
		r.SetHeader(key, value)
	}
}

type choiceDelta struct {
	Content string `json:"content"`
}

type streamChoice struct {
	Delta choiceDelta `json:"delta"`
}

// CompletionClient talks to an OpenAI-compatible chat completions endpoint.
// Authentication headers are configured on the underlying resty client.
type CompletionClient struct {
	client  *resty.Client
	baseURL string
	name    string
}

func NewCompletionClient(client *resty.Client, name, baseURL string) *CompletionClient {
	return &CompletionClient{
		client:  client,
		baseURL: normalizeBaseURL(baseURL),
		name:    name,
	}
}

// CreateChatCompletion performs a blocking, non-streaming completion call.
func (c *CompletionClient) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	var respBody openai.ChatCompletionResponse
	resp, err := c.prepareRequest(ctx).
		SetBody(request).
		SetResult(&respBody).
		Post(c.endpoint("/chat/completions"))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(ctx, resp, "request failed")
	}
	return &respBody, nil
}

// StreamChatCompletion opens an SSE completion stream and returns two
// channels. The fragment channel carries assistant text deltas and is closed
// when the upstream sends its done marker. The error channel carries at most
// one mid-stream failure. An error opening the stream is returned directly.
func (c *CompletionClient) StreamChatCompletion(ctx context.Context, request openai.ChatCompletionRequest, opts ...StreamOption) (<-chan string, <-chan error, error) {
	request.Stream = true

	resp, err := c.doStreamingRequest(ctx, request, opts...)
	if err != nil {
		return nil, nil, err
	}

	fragments := make(chan string, channelBufferSize)
	errs := make(chan error, errorBufferSize)

	go c.consumeStream(ctx, resp, fragments, errs)

	return fragments, errs, nil
}

func (c *CompletionClient) consumeStream(ctx context.Context, resp *resty.Response, fragments chan<- string, errs chan<- error) {
	defer close(fragments)
	defer func() {
		if closeErr := resp.RawResponse.Body.Close(); closeErr != nil {
			log := logger.GetLogger()
			log.Error().Err(closeErr).Str("client", c.name).Msg("unable to close response body")
		}
	}()

	scanner := bufio.NewScanner(resp.RawResponse.Body)
	scanner.Buffer(make([]byte, 0, scannerInitialBuffer), scannerMaxBuffer)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			c.sendAsyncError(errs, ctx.Err())
			return
		default:
		}

		data, found := strings.CutPrefix(scanner.Text(), dataPrefix)
		if !found {
			continue
		}
		if data == doneMarker {
			return
		}

		content := c.extractDeltaContent(data)
		if content == "" {
			continue
		}

		select {
		case fragments <- content:
		case <-ctx.Done():
			c.sendAsyncError(errs, ctx.Err())
			return
		}
	}

	if err := scanner.Err(); err != nil {
		c.sendAsyncError(errs, err)
	}
}

func (c *CompletionClient) extractDeltaContent(data string) string {
	var chunk struct {
		Choices []streamChoice `json:"choices"`
	}
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		log := logger.GetLogger()
		log.Error().Err(err).Str("client", c.name).Str("data", data).Msg("failed to parse stream chunk JSON")
		return ""
	}

	var builder strings.Builder
	for _, choice := range chunk.Choices {
		builder.WriteString(choice.Delta.Content)
	}
	return builder.String()
}

func (c *CompletionClient) prepareRequest(ctx context.Context) *resty.Request {
	req := c.client.R().SetContext(ctx)
	req.SetHeader("Content-Type", "application/json")
	return req
}

func (c *CompletionClient) endpoint(path string) string {
	if path == "" {
		return c.baseURL
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if c.baseURL == "" {
		return path
	}
	if strings.HasPrefix(path, "/") {
		return c.baseURL + path
	}
	return c.baseURL + "/" + path
}

func (c *CompletionClient) errorFromResponse(ctx context.Context, resp *resty.Response, message string) error {
	if resp == nil || resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, message, nil)
	}
	defer resp.RawResponse.Body.Close()
	body, err := io.ReadAll(resp.RawResponse.Body)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, message, nil)
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, message, nil)
	}
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, fmt.Sprintf("%s: %s", message, trimmed), nil)
}

func (c *CompletionClient) doStreamingRequest(ctx context.Context, request openai.ChatCompletionRequest, opts ...StreamOption) (*resty.Response, error) {
	req := c.prepareRequest(ctx).
		SetBody(request).
		SetDoNotParseResponse(true)

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(req)
	}

	if req.Header.Get("Accept-Encoding") == "" {
		req.SetHeader("Accept-Encoding", "identity")
	}

	resp, err := req.Post(c.endpoint("/chat/completions"))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, c.errorFromResponse(ctx, resp, "streaming request failed")
	}
	if resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "streaming request failed: empty response body", nil)
	}

	return resp, nil
}

func (c *CompletionClient) sendAsyncError(errChan chan<- error, err error) {
	if err == nil {
		return
	}

	select {
	case errChan <- err:
	default:
	}
}

func (c *CompletionClient) BaseURL() string {
	return c.baseURL
}

func normalizeBaseURL(base string) string {
	trimmed := strings.TrimSpace(base)
	return strings.TrimRight(trimmed, "/")
}

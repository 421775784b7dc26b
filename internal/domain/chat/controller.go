// Package chat implements the turn pipeline: quota, conversation
// resolution, backend streaming, and persistence of completed turns.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/creedpetitt/ai-services-backend/internal/domain"
	"github.com/creedpetitt/ai-services-backend/internal/domain/conversation"
	"github.com/creedpetitt/ai-services-backend/internal/domain/model"
	"github.com/creedpetitt/ai-services-backend/internal/domain/quota"
	"github.com/creedpetitt/ai-services-backend/internal/domain/tokenusage"
	"github.com/creedpetitt/ai-services-backend/internal/domain/user"
	"github.com/creedpetitt/ai-services-backend/internal/utils/platformerrors"
	"github.com/creedpetitt/ai-services-backend/internal/utils/stringutils"
)

// DefaultSessionTimeout bounds a single streaming session end to end.
const DefaultSessionTimeout = 5 * time.Minute

// Sink receives the outcome of a streaming turn. Send returning an error
// means the client is gone; the session stops without treating it as a
// failure. Exactly one of Error and Close is invoked, at most once.
type Sink interface {
	Send(fragment string) error
	Error(err error)
	Close()
}

// TurnRequest is one user turn. ConversationID zero means a new
// conversation for authenticated callers and a volatile exchange for
// anonymous ones.
type TurnRequest struct {
	ConversationID uint
	Content        string
	ImageURL       string
	Model          string
}

// TurnResult is the outcome of a non-streaming turn.
type TurnResult struct {
	Conversation *conversation.Conversation
	Content      string
	Model        string
}

// providerNamer is implemented by backends that know which provider serves
// them, for usage attribution.
type providerNamer interface {
	ProviderName() string
}

// Controller orchestrates chat turns.
type Controller struct {
	ledger         *quota.Ledger
	registry       *model.Registry
	conversations  *conversation.Service
	usage          *tokenusage.Service
	systemPrompt   string
	sessionTimeout time.Duration
	logger         zerolog.Logger
}

// NewController wires the turn pipeline. usage may be nil to disable
// accounting; timeout zero falls back to DefaultSessionTimeout.
func NewController(
	ledger *quota.Ledger,
	registry *model.Registry,
	conversations *conversation.Service,
	usage *tokenusage.Service,
	systemPrompt string,
	sessionTimeout time.Duration,
	logger zerolog.Logger,
) *Controller {
	if sessionTimeout <= 0 {
		sessionTimeout = DefaultSessionTimeout
	}
	return &Controller{
		ledger:         ledger,
		registry:       registry,
		conversations:  conversations,
		usage:          usage,
		systemPrompt:   systemPrompt,
		sessionTimeout: sessionTimeout,
		logger:         logger,
	}
}

// preparedTurn is the state after validation, before the stream opens.
type preparedTurn struct {
	backend model.Backend
	conv    *conversation.Conversation
	prompt  model.Prompt
}

// StreamTurn runs one turn against the sink. Failures before the backend
// stream opens are returned to the caller; afterwards the sink alone
// reports the outcome and the returned error is nil.
func (c *Controller) StreamTurn(ctx context.Context, identity domain.Identity, req TurnRequest, sink Sink) error {
	prepared, err := c.prepare(ctx, identity, req)
	if err != nil {
		return err
	}

	streamCtx, cancel := context.WithTimeout(ctx, c.sessionTimeout)
	defer cancel()

	fragments, errs, err := prepared.backend.Stream(streamCtx, prepared.prompt)
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal,
			"failed to open model stream", err)
	}

	c.consume(ctx, streamCtx, cancel, identity, prepared, fragments, errs, sink)
	return nil
}

// CompleteTurn runs the identical pipeline without streaming to the client:
// fragments are collected and the whole assistant reply is returned once.
func (c *Controller) CompleteTurn(ctx context.Context, identity domain.Identity, req TurnRequest) (*TurnResult, error) {
	collector := &collectingSink{}
	if err := c.StreamTurn(ctx, identity, req, collector); err != nil {
		return nil, err
	}
	if collector.err != nil {
		return nil, collector.err
	}

	return &TurnResult{
		Conversation: collector.conv,
		Content:      collector.content.String(),
		Model:        collector.model,
	}, nil
}

// prepare walks the pre-stream pipeline: quota, validation, conversation
// resolution, persistence of the user message, and the quota increment.
func (c *Controller) prepare(ctx context.Context, identity domain.Identity, req TurnRequest) (*preparedTurn, error) {
	if !c.ledger.Allowed(ctx, identity, quota.KindMessage) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeRateLimited,
			"message limit reached", nil)
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"message content is required", nil)
	}

	owner := ownerOf(identity)

	var conv *conversation.Conversation
	modelName := req.Model
	if req.ConversationID != 0 {
		existing, err := c.conversations.GetConversation(ctx, req.ConversationID, owner)
		if err != nil {
			return nil, err
		}
		conv = existing
		if modelName == "" {
			modelName = conv.Model
		}
	}

	if modelName == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"model is required for a new conversation", nil)
	}

	backend, err := c.registry.Resolve(ctx, modelName)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"unknown model "+modelName, err)
	}

	if req.ImageURL != "" && !backend.SupportsImages() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"model "+modelName+" does not accept image input", nil)
	}

	if conv == nil && owner != nil {
		created, err := c.conversations.CreateConversation(ctx, owner, stringutils.DeriveTitle(content), modelName)
		if err != nil {
			return nil, err
		}
		conv = created
	}

	prompt, err := c.buildPrompt(ctx, conv, content, req.ImageURL)
	if err != nil {
		return nil, err
	}

	if conv != nil {
		var imageURL *string
		if req.ImageURL != "" {
			imageURL = &req.ImageURL
		}
		if _, err := c.conversations.AddUserMessage(ctx, conv, owner, content, imageURL); err != nil {
			return nil, err
		}
	}

	c.ledger.Increment(ctx, identity, quota.KindMessage)

	if conv != nil {
		if err := c.conversations.Touch(ctx, conv); err != nil {
			c.logger.Warn().Err(err).Uint("conversation_id", conv.ID).Msg("failed to touch conversation")
		}
	}

	return &preparedTurn{backend: backend, conv: conv, prompt: prompt}, nil
}

// buildPrompt assembles system prompt, prior history, and the current turn.
func (c *Controller) buildPrompt(ctx context.Context, conv *conversation.Conversation, content, imageURL string) (model.Prompt, error) {
	prompt := model.Prompt{System: c.systemPrompt}

	if conv != nil {
		history, err := c.conversations.GetMessages(ctx, conv)
		if err != nil {
			return model.Prompt{}, err
		}
		for _, msg := range history {
			switch msg.Kind {
			case conversation.MessageKindUser:
				turn := model.Turn{Role: model.RoleUser, Content: msg.Content}
				if msg.ImageURL != nil {
					turn.ImageURL = *msg.ImageURL
				}
				prompt.Turns = append(prompt.Turns, turn)
			case conversation.MessageKindAssistant:
				prompt.Turns = append(prompt.Turns, model.Turn{Role: model.RoleAssistant, Content: msg.Content})
			}
		}
	}

	prompt.Turns = append(prompt.Turns, model.Turn{Role: model.RoleUser, Content: content, ImageURL: imageURL})
	return prompt, nil
}

// consume forwards fragments to the sink until the stream ends, fails,
// times out, or the client disconnects. The latch guarantees exactly one
// terminal signal reaches the sink. Fragments the backend already queued
// always reach the sink ahead of a terminal error: backends buffer both
// channels, so a failure must never race past the text produced before it.
func (c *Controller) consume(
	ctx context.Context,
	streamCtx context.Context,
	cancel context.CancelFunc,
	identity domain.Identity,
	prepared *preparedTurn,
	fragments <-chan string,
	errs <-chan error,
	sink Sink,
) {
	var latch finalizeLatch
	var answer strings.Builder

	disconnected := func(err error) {
		// Client went away; not a failure.
		latch.Do(func() {
			cancel()
			c.logger.Debug().Err(err).Msg("client disconnected mid-stream")
		})
	}

	failed := func(err error) {
		latch.Do(func() {
			cancel()
			sink.Error(platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal,
				"model stream failed", err))
		})
	}

	// finish resolves a closed fragment channel. A failure already queued on
	// the error channel wins over completion, so a partial answer is never
	// persisted as a finished turn.
	finish := func() {
		select {
		case err, open := <-errs:
			if open && err != nil {
				failed(err)
				return
			}
		default:
		}
		c.finishCompleted(ctx, identity, prepared, answer.String(), sink, &latch)
	}

	// forward relays one received fragment; false stops the session.
	forward := func(fragment string, ok bool) bool {
		if !ok {
			finish()
			return false
		}
		answer.WriteString(fragment)
		if err := sink.Send(fragment); err != nil {
			disconnected(err)
			return false
		}
		return true
	}

	for {
		// Drain queued fragments before considering any terminal signal.
		select {
		case fragment, ok := <-fragments:
			if !forward(fragment, ok) {
				return
			}
			continue
		default:
		}

		select {
		case fragment, ok := <-fragments:
			if !forward(fragment, ok) {
				return
			}
		case err, open := <-errs:
			if !open || err == nil {
				errs = nil
				continue
			}
			// Backends queue their pending fragments before reporting the
			// failure; flush them so the sink sees the text first.
			if sendErr := drainPending(fragments, sink, &answer); sendErr != nil {
				disconnected(sendErr)
				return
			}
			failed(err)
			return
		case <-streamCtx.Done():
			latch.Do(func() {
				sink.Error(platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeTimeout,
					"session timed out", streamCtx.Err()))
			})
			return
		}
	}
}

// drainPending forwards whatever is still queued on the fragment channel
// without blocking. Returns the sink error when the client disconnects
// mid-drain.
func drainPending(fragments <-chan string, sink Sink, answer *strings.Builder) error {
	for {
		select {
		case fragment, ok := <-fragments:
			if !ok {
				return nil
			}
			answer.WriteString(fragment)
			if err := sink.Send(fragment); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// finishCompleted persists the assistant reply and usage, then closes the
// sink. Everything runs inside the latch: a completion that loses the race
// against an error or timeout leaves no assistant message behind, and a
// repeated completion signal persists nothing twice. Persistence failures
// are logged; the client already holds the full reply, so the session still
// closes cleanly.
func (c *Controller) finishCompleted(
	ctx context.Context,
	identity domain.Identity,
	prepared *preparedTurn,
	answer string,
	sink Sink,
	latch *finalizeLatch,
) {
	latch.Do(func() {
		owner := ownerOf(identity)

		if answer != "" && prepared.conv != nil && owner != nil {
			if _, err := c.conversations.AddAssistantMessage(ctx, prepared.conv, owner, answer, prepared.backend.Name()); err != nil {
				c.logger.Error().Err(err).Uint("conversation_id", prepared.conv.ID).Msg("failed to persist assistant message")
			} else if err := c.conversations.Touch(ctx, prepared.conv); err != nil {
				c.logger.Warn().Err(err).Uint("conversation_id", prepared.conv.ID).Msg("failed to touch conversation")
			}
			c.recordUsage(ctx, owner, prepared, answer)
		}

		if reporter, ok := sink.(ResultReporter); ok {
			reporter.SetResult(prepared.conv, prepared.backend.Name())
		}
		sink.Close()
	})
}

// recordUsage estimates token counts for the finished turn. Accounting never
// fails a turn.
func (c *Controller) recordUsage(ctx context.Context, owner *user.User, prepared *preparedTurn, answer string) {
	if c.usage == nil {
		return
	}

	promptTokens := tokenusage.EstimateTokens(prepared.prompt.System)
	for _, turn := range prepared.prompt.Turns {
		promptTokens += tokenusage.EstimateTokens(turn.Content)
	}
	completionTokens := tokenusage.EstimateTokens(answer)

	cost := decimal.Zero
	if priced, ok := prepared.backend.(model.Pricing); ok {
		cost = tokenusage.CostFor(promptTokens, completionTokens, priced.PromptPrice(), priced.CompletionPrice())
	}

	provider := ""
	if named, ok := prepared.backend.(providerNamer); ok {
		provider = named.ProviderName()
	}

	var requestID *string
	if rid := platformerrors.RequestIDFromContext(ctx); rid != "" {
		requestID = &rid
	}

	convID := prepared.conv.ID
	record := &tokenusage.TokenUsage{
		UserID:           owner.ID,
		ConversationID:   &convID,
		Model:            prepared.backend.Name(),
		Provider:         provider,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		EstimatedCostUSD: cost,
		RequestID:        requestID,
		Stream:           true,
	}
	if err := c.usage.RecordUsage(ctx, record); err != nil {
		c.logger.Warn().Err(err).Msg("failed to record token usage")
	}
}

// finalizeLatch lets exactly one terminal transition through.
type finalizeLatch struct {
	once sync.Once
}

func (l *finalizeLatch) Do(fn func()) {
	l.once.Do(fn)
}

// ownerOf returns the persisted user behind the identity, nil for anonymous
// callers.
func ownerOf(identity domain.Identity) *user.User {
	if authed, ok := identity.(domain.Authenticated); ok {
		return authed.User
	}
	return nil
}

// collectingSink buffers fragments for the non-streaming variant.
type collectingSink struct {
	content strings.Builder
	err     error
	conv    *conversation.Conversation
	model   string
}

// ResultReporter is optionally implemented by sinks that want the resolved
// conversation and model once the turn completes.
type ResultReporter interface {
	SetResult(conv *conversation.Conversation, model string)
}

func (s *collectingSink) Send(fragment string) error {
	s.content.WriteString(fragment)
	return nil
}

func (s *collectingSink) Error(err error) {
	s.err = err
}

func (s *collectingSink) Close() {}

func (s *collectingSink) SetResult(conv *conversation.Conversation, model string) {
	s.conv = conv
	s.model = model
}

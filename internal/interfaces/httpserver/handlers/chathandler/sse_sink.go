package chathandler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/creedpetitt/ai-services-backend/internal/domain/conversation"
	chatresponses "github.com/creedpetitt/ai-services-backend/internal/interfaces/httpserver/responses/chat"
	"github.com/creedpetitt/ai-services-backend/internal/utils/platformerrors"
)

// sseSink adapts a gin response writer into a chat sink. Each fragment goes
// out as one SSE data event; the terminal event is either an error payload
// or a done payload carrying the resolved conversation.
type sseSink struct {
	c       *gin.Context
	flusher http.Flusher
	conv    *conversation.Conversation
	model   string
}

func newSSESink(c *gin.Context, flusher http.Flusher) *sseSink {
	return &sseSink{c: c, flusher: flusher}
}

func (s *sseSink) Send(fragment string) error {
	return s.writeEvent(chatresponses.StreamEvent{Delta: fragment})
}

func (s *sseSink) Error(err error) {
	message := "stream failed"
	if platformErr := platformerrors.GetPlatformError(err); platformErr != nil {
		message = platformErr.Message
	}
	_ = s.writeEvent(chatresponses.StreamEvent{Error: message})
}

func (s *sseSink) Close() {
	done := &chatresponses.DoneEvent{Model: s.model}
	if s.conv != nil {
		done.ConversationID = s.conv.ID
		done.ConversationPublicID = s.conv.PublicID
	}
	_ = s.writeEvent(chatresponses.StreamEvent{Done: done})
}

// SetResult implements chat.ResultReporter.
func (s *sseSink) SetResult(conv *conversation.Conversation, model string) {
	s.conv = conv
	s.model = model
}

func (s *sseSink) writeEvent(event chatresponses.StreamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := s.c.Writer.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := s.c.Writer.Write(payload); err != nil {
		return err
	}
	if _, err := s.c.Writer.Write([]byte("\n\n")); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

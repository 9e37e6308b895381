package controllers

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yashrajoria/pharmacy-agent/apperrors"
	"github.com/yashrajoria/pharmacy-agent/logger"
	"github.com/yashrajoria/pharmacy-agent/middleware"
	"github.com/yashrajoria/pharmacy-agent/models"
	"github.com/yashrajoria/pharmacy-agent/services"
	"go.uber.org/zap"
)

const maxAudioBytes = 10 << 20

// ConversationService is what the HTTP layer needs from the orchestrator.
type ConversationService interface {
	SubmitUtterance(ctx context.Context, conversationID, text string) (*models.Outcome, error)
	AdvanceCheckout(ctx context.Context, conversationID string, action models.CheckoutAction, payload models.CheckoutPayload) (*models.Outcome, error)
	CurrentCheckout(ctx context.Context, conversationID string) (*models.PendingCheckout, error)
}

// AudioArchive stores raw voice uploads.
type AudioArchive interface {
	Upload(ctx context.Context, key, contentType string, body []byte) (string, error)
}

type ChatController struct {
	conversations ConversationService
	transcriber   services.Transcriber
	archive       AudioArchive
	logger        *zap.Logger
}

// NewChatController accepts a nil archive.
func NewChatController(conversations ConversationService, transcriber services.Transcriber, archive AudioArchive, logger *zap.Logger) *ChatController {
	return &ChatController{
		conversations: conversations,
		transcriber:   transcriber,
		archive:       archive,
		logger:        logger,
	}
}

// SubmitUtterance handles POST /chat/utterance.
func (cc *ChatController) SubmitUtterance(c *gin.Context) {
	var req models.UtteranceRequest
	if !bindJSON(c, &req) {
		return
	}

	outcome, err := cc.conversations.SubmitUtterance(c.Request.Context(), middleware.GetConversationID(c), req.Text)
	if err != nil {
		cc.fail(c, "submit utterance failed", err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// Transcribe handles POST /voice/transcribe. The audio comes either as a
// multipart "audio" file or as the raw request body.
func (cc *ChatController) Transcribe(c *gin.Context) {
	audio, contentType, err := readAudio(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	ctx := c.Request.Context()
	conversationID := middleware.GetConversationID(c)

	if cc.archive != nil {
		key := fmt.Sprintf("voice/%s/%s%s", conversationID, uuid.NewString(), audioExtension(contentType))
		if _, err := cc.archive.Upload(ctx, key, contentType, audio); err != nil {
			logger.For(c, cc.logger).Warn("voice archive upload failed", zap.String("key", key), zap.Error(err))
		}
	}

	transcript, err := cc.transcriber.Transcribe(ctx, audio)
	if err != nil {
		cc.fail(c, "transcription failed", err)
		return
	}
	if transcript == "" {
		c.JSON(http.StatusOK, gin.H{"transcript": "", "status": "No speech detected"})
		return
	}

	if c.Query("submit") != "true" {
		c.JSON(http.StatusOK, gin.H{"transcript": transcript})
		return
	}

	outcome, err := cc.conversations.SubmitUtterance(ctx, conversationID, transcript)
	if err != nil {
		cc.fail(c, "submit transcript failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcript": transcript, "outcome": outcome})
}

func (cc *ChatController) fail(c *gin.Context, msg string, err error) {
	appErr := apperrors.From(err)
	if appErr.Code >= http.StatusInternalServerError {
		logger.For(c, cc.logger).Error(msg, zap.String("conversation_id", middleware.GetConversationID(c)), zap.Error(err))
	}
	apperrors.Respond(c, appErr)
}

func readAudio(c *gin.Context) ([]byte, string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAudioBytes+1<<20)

	mediaType, _, _ := mime.ParseMediaType(c.ContentType())
	if mediaType == "multipart/form-data" {
		fh, err := c.FormFile("audio")
		if err != nil {
			return nil, "", apperrors.InvalidInput("audio file is required")
		}
		if fh.Size > maxAudioBytes {
			return nil, "", apperrors.InvalidInput("audio exceeds 10 MiB")
		}
		f, err := fh.Open()
		if err != nil {
			return nil, "", apperrors.InvalidInput("audio file is unreadable")
		}
		defer f.Close()
		audio, err := io.ReadAll(f)
		if err != nil {
			return nil, "", apperrors.InvalidInput("audio file is unreadable")
		}
		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = mime.TypeByExtension(filepath.Ext(fh.Filename))
		}
		return checkAudio(audio, contentType)
	}

	audio, err := io.ReadAll(io.LimitReader(c.Request.Body, maxAudioBytes+1))
	if err != nil {
		return nil, "", apperrors.InvalidInput("audio body is unreadable")
	}
	if len(audio) > maxAudioBytes {
		return nil, "", apperrors.InvalidInput("audio exceeds 10 MiB")
	}
	return checkAudio(audio, mediaType)
}

func checkAudio(audio []byte, contentType string) ([]byte, string, error) {
	if len(audio) == 0 {
		return nil, "", apperrors.InvalidInput("audio is empty")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return audio, contentType, nil
}

func audioExtension(contentType string) string {
	switch {
	case strings.Contains(contentType, "webm"):
		return ".webm"
	case strings.Contains(contentType, "wav"):
		return ".wav"
	case strings.Contains(contentType, "mpeg"), strings.Contains(contentType, "mp3"):
		return ".mp3"
	case strings.Contains(contentType, "ogg"):
		return ".ogg"
	default:
		return ".bin"
	}
}

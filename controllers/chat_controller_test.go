package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/pharmacy-agent/apperrors"
	"github.com/yashrajoria/pharmacy-agent/controllers"
	"github.com/yashrajoria/pharmacy-agent/models"
	"github.com/yashrajoria/pharmacy-agent/routes"
	"go.uber.org/zap"
)

func conversationRouter(conv controllers.ConversationService, tr *mockTranscriber, archive controllers.AudioArchive) *gin.Engine {
	r := gin.New()
	if tr == nil {
		tr = &mockTranscriber{}
	}
	routes.RegisterConversationRoutes(r,
		controllers.NewChatController(conv, tr, archive, zap.NewNop()),
		controllers.NewCheckoutController(conv, zap.NewNop()),
	)
	return r
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Conversation-ID", "conv-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitUtterance_Success(t *testing.T) {
	conv := &mockConversations{
		submitFn: func(ctx context.Context, id, text string) (*models.Outcome, error) {
			assert.Equal(t, "conv-1", id)
			assert.Equal(t, "I need 3 ParacetamolXL", text)
			return &models.Outcome{Kind: models.OutcomePendingCheckout, Message: "Confirm order: 3 x ParacetamolXL. Total cost: 15.00"}, nil
		},
	}
	r := conversationRouter(conv, nil, nil)

	w := doJSON(r, http.MethodPost, "/chat/utterance", gin.H{"text": "I need 3 ParacetamolXL"})

	assert.Equal(t, http.StatusOK, w.Code)
	var out models.Outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, models.OutcomePendingCheckout, out.Kind)
}

func TestSubmitUtterance_MissingText(t *testing.T) {
	r := conversationRouter(&mockConversations{}, nil, nil)

	w := doJSON(r, http.MethodPost, "/chat/utterance", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "text is required")
}

func TestSubmitUtterance_MissingConversationHeader(t *testing.T) {
	r := conversationRouter(&mockConversations{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/chat/utterance", bytes.NewBufferString(`{"text":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitUtterance_SessionActive(t *testing.T) {
	conv := &mockConversations{
		submitFn: func(ctx context.Context, id, text string) (*models.Outcome, error) {
			return nil, apperrors.SessionAlreadyActive()
		},
	}
	r := conversationRouter(conv, nil, nil)

	w := doJSON(r, http.MethodPost, "/chat/utterance", gin.H{"text": "need 1 paracetamolxl"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Please complete or cancel the current checkout")
}

func rawAudioRequest(path string, audio []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(audio))
	req.Header.Set("Content-Type", "audio/webm")
	req.Header.Set("X-Conversation-ID", "conv-1")
	return req
}

func TestTranscribe_RawBody(t *testing.T) {
	tr := &mockTranscriber{text: "need 3 paracetamolxl"}
	archive := &mockArchive{}
	r := conversationRouter(&mockConversations{}, tr, archive)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, rawAudioRequest("/voice/transcribe", []byte("webm-bytes")))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"transcript":"need 3 paracetamolxl"}`, w.Body.String())
	assert.Equal(t, []byte("webm-bytes"), tr.got)
	require.Len(t, archive.keys, 1)
	assert.Regexp(t, `^voice/conv-1/[0-9a-f-]{36}\.webm$`, archive.keys[0])
	assert.Equal(t, "audio/webm", archive.contentTypes[0])
}

func TestTranscribe_Multipart(t *testing.T) {
	tr := &mockTranscriber{text: "hello"}
	r := conversationRouter(&mockConversations{}, tr, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", "clip.wav")
	require.NoError(t, err)
	_, _ = part.Write([]byte("wav-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/voice/transcribe", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Conversation-ID", "conv-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []byte("wav-bytes"), tr.got)
}

func TestTranscribe_NoSpeech(t *testing.T) {
	r := conversationRouter(&mockConversations{}, &mockTranscriber{}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, rawAudioRequest("/voice/transcribe?submit=true", []byte("silence")))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"transcript":"","status":"No speech detected"}`, w.Body.String())
}

func TestTranscribe_SubmitFeedsUtterance(t *testing.T) {
	submitted := ""
	conv := &mockConversations{
		submitFn: func(ctx context.Context, id, text string) (*models.Outcome, error) {
			submitted = text
			return &models.Outcome{Kind: models.OutcomeClarification, Message: "Please share medicine name and quantity so I can process it safely."}, nil
		},
	}
	r := conversationRouter(conv, &mockTranscriber{text: "hello"}, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, rawAudioRequest("/voice/transcribe?submit=true", []byte("audio")))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", submitted)
	assert.Contains(t, w.Body.String(), `"outcome"`)
}

func TestTranscribe_ArchiveFailureIsNotFatal(t *testing.T) {
	archive := &mockArchive{err: errors.New("access denied")}
	r := conversationRouter(&mockConversations{}, &mockTranscriber{text: "hello"}, archive)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, rawAudioRequest("/voice/transcribe", []byte("audio")))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTranscribe_Failures(t *testing.T) {
	unavailable := &mockTranscriber{err: apperrors.CollaboratorUnavailable("transcription service", errors.New("502"))}
	r := conversationRouter(&mockConversations{}, unavailable, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, rawAudioRequest("/voice/transcribe", []byte("audio")))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, rawAudioRequest("/voice/transcribe", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

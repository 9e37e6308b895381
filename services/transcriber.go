package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yashrajoria/pharmacy-agent/apperrors"
	"go.uber.org/zap"
)

// Transcriber turns recorded audio into text. An empty string means no
// speech was recognized.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// HTTPTranscriber calls a speech-to-text function behind an API gateway.
// It sends the gateway-proxy shape first and falls back to a bare
// {"data": ...} body, which is what direct invocations accept.
type HTTPTranscriber struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPTranscriber(url string, logger *zap.Logger) *HTTPTranscriber {
	return &HTTPTranscriber{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

func (t *HTTPTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}
	encoded := base64.StdEncoding.EncodeToString(audio)

	inner, err := json.Marshal(map[string]string{"data": encoded})
	if err != nil {
		return "", err
	}
	proxyPayload := map[string]interface{}{
		"body":            string(inner),
		"isBase64Encoded": false,
	}

	transcript, err := t.post(ctx, proxyPayload)
	if err == nil {
		return transcript, nil
	}
	t.logger.Debug("proxy-shaped transcription request failed, retrying with bare payload", zap.Error(err))

	transcript, err = t.post(ctx, map[string]string{"data": encoded})
	if err != nil {
		return "", apperrors.CollaboratorUnavailable("transcription service", err)
	}
	return transcript, nil
}

func (t *HTTPTranscriber) post(ctx context.Context, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read transcription response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("transcription service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return parseTranscript(raw)
}

// parseTranscript accepts {"transcript": ...}, or a proxy envelope whose
// "body" is that object either inline or as a JSON string.
func parseTranscript(raw []byte) (string, error) {
	var outer struct {
		Transcript *string         `json:"transcript"`
		Body       json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(raw, &outer); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	if outer.Transcript != nil {
		return strings.TrimSpace(*outer.Transcript), nil
	}
	if len(outer.Body) == 0 {
		return "", errors.New("transcription response has no transcript")
	}

	body := []byte(outer.Body)
	var asString string
	if err := json.Unmarshal(body, &asString); err == nil {
		body = []byte(asString)
	}
	var inner struct {
		Transcript string `json:"transcript"`
	}
	if err := json.Unmarshal(body, &inner); err != nil {
		return "", fmt.Errorf("decode transcription body: %w", err)
	}
	return strings.TrimSpace(inner.Transcript), nil
}

// DisabledTranscriber is used when no speech-to-text endpoint is
// configured.
type DisabledTranscriber struct{}

func (DisabledTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return "", apperrors.CollaboratorUnavailable("transcription service", errors.New("STT_API_URL is not configured"))
}

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yashrajoria/pharmacy-agent/apperrors"
	"github.com/yashrajoria/pharmacy-agent/models"
)

// RemoteDecisionEngine asks a policy service over HTTP.
type RemoteDecisionEngine struct {
	baseURL    string
	httpClient *http.Client
}

func NewRemoteDecisionEngine(baseURL string) *RemoteDecisionEngine {
	return &RemoteDecisionEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type policyEvaluateRequest struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

type policyEvaluateResponse struct {
	Decision    string          `json:"decision"`
	ProductName string          `json:"product_name"`
	Product     *models.Product `json:"product"`
}

func (e *RemoteDecisionEngine) Evaluate(ctx context.Context, intent models.Intent) (models.Decision, error) {
	body, err := json.Marshal(policyEvaluateRequest{ProductName: intent.ProductName, Quantity: intent.Quantity})
	if err != nil {
		return models.Decision{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/policy/evaluate", bytes.NewReader(body))
	if err != nil {
		return models.Decision{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return models.Decision{}, apperrors.CollaboratorUnavailable("policy service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.Decision{}, apperrors.CollaboratorUnavailable("policy service",
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	var out policyEvaluateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.Decision{}, apperrors.CollaboratorUnavailable("policy service", fmt.Errorf("decode response: %w", err))
	}
	return toDecision(out, intent)
}

func toDecision(out policyEvaluateResponse, intent models.Intent) (models.Decision, error) {
	kind, err := models.ParseDecisionKind(out.Decision)
	if err != nil {
		return models.Decision{}, apperrors.CollaboratorUnavailable("policy service", err)
	}

	switch kind {
	case models.DecisionRejectUnresolved:
		return models.Decision{Kind: kind, Quantity: intent.Quantity}, nil
	case models.DecisionRejectNotFound:
		name := out.ProductName
		if name == "" {
			name = intent.ProductName
		}
		return models.Decision{Kind: kind, ProductName: name, Quantity: intent.Quantity}, nil
	}

	if out.Product == nil {
		return models.Decision{}, apperrors.CollaboratorUnavailable("policy service",
			fmt.Errorf("decision %s without product", kind))
	}

	// Re-derive locally so a remote answer that contradicts its own
	// product data is refused rather than trusted.
	d := EvaluateProduct(*out.Product, intent.Quantity)
	if d.Kind != kind {
		return models.Decision{}, apperrors.CollaboratorUnavailable("policy service",
			fmt.Errorf("decision %s inconsistent with product data (%s)", kind, d.Kind))
	}
	return d, nil
}

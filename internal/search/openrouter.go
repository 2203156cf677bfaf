package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"ms-curation/internal/config"
	"ms-curation/internal/logger"
	"ms-curation/internal/models"
)

// OpenRouterTranslator delegates language understanding to a hosted model via
// the OpenRouter chat-completions API. Only the output schema is owned here;
// anything the model returns outside the filter contract is rejected.
type OpenRouterTranslator struct {
	client *http.Client
	cfg    config.OpenRouterConfig
	logger *logger.Logger
}

func NewOpenRouterTranslator(client *http.Client, cfg config.OpenRouterConfig, log *logger.Logger) *OpenRouterTranslator {
	return &OpenRouterTranslator{client: client, cfg: cfg, logger: log}
}

const promptTemplate = `Context: Singapore Electronic Music events. Extract filters from: %q.
Return JSON ONLY with these exact keys:
{ "v": string|null (venue name), "g": string|null (genre), "p_max": number|null (max price), "free": boolean|null (free events only) }
Examples: 'techno at Zouk' -> {"v":"Zouk","g":"techno","p_max":null,"free":null}
'free house events' -> {"v":null,"g":"house","p_max":null,"free":true}
'events under 50 dollars' -> {"v":null,"g":null,"p_max":50,"free":null}`

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Translate sends the free text to the model and parses the constrained
// filter out of its reply. The call is bounded by the configured timeout; on
// timeout or unusable output the caller gets a TranslationError and no query
// runs.
func (t *OpenRouterTranslator) Translate(ctx context.Context, freeText string) (models.QueryFilter, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model: t.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: fmt.Sprintf(promptTemplate, freeText)},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return models.QueryFilter{}, &TranslationError{Reason: "failed to build request", Err: err}
	}

	url := strings.TrimSuffix(t.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return models.QueryFilter{}, &TranslationError{Reason: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)
	req.Header.Set("X-Title", "Singapore Events Search")

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Error("SEARCH", fmt.Sprintf("translation request failed: %v", err))
		return models.QueryFilter{}, &TranslationError{Reason: "understanding service unreachable", Err: err}
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return models.QueryFilter{}, &TranslationError{Reason: "unreadable response", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		reason := fmt.Sprintf("understanding service returned status %d", resp.StatusCode)
		if parsed.Error != nil {
			reason = fmt.Sprintf("%s: %s", reason, parsed.Error.Message)
		}
		return models.QueryFilter{}, &TranslationError{Reason: reason}
	}
	if len(parsed.Choices) == 0 {
		return models.QueryFilter{}, &TranslationError{Reason: "empty model reply"}
	}

	filter, err := ParseFilter(parsed.Choices[0].Message.Content)
	if err != nil {
		return models.QueryFilter{}, err
	}

	t.logger.LogSearch("TRANSLATE", fmt.Sprintf("%q -> venue=%v genre=%v", freeText, filter.Venue != nil, filter.Genre != nil))
	return filter, nil
}

package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/linguist-ai/linguist-bridge/internal/pipeline"
)

// styleDirective is the fixed system-level instruction: natural, colloquial
// register, not literal dictionary translation.
const styleDirective = "You are a professional, natural-sounding translator. " +
	"Use colloquial, modern phrasing where appropriate rather than overly " +
	"formal dictionary translations."

const temperature = 0.1

// Stage performs the single request/response translation call.
type Stage struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// New creates a translation stage against a generateContent-style endpoint.
func New(endpoint, apiKey string) *Stage {
	return &Stage{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Translate converts text from sourceLang to targetLang. Only the literal
// transcript is sent, with a directive to return the translation alone. No
// retry: a failure surfaces as an upstream error and the caller marks the
// turn failed.
func (s *Stage) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	prompt := fmt.Sprintf("Translate the following text from %s to %s. "+
		"Provide only the translated text without any explanations or extra characters.\n\nText: %q",
		sourceLang, targetLang, text)

	reqBody := generateRequest{
		Contents:          []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig:  &generationConfig{Temperature: temperature},
		SystemInstruction: &content{Parts: []part{{Text: styleDirective}}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", pipeline.UpstreamError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", pipeline.UpstreamError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", pipeline.UpstreamError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", pipeline.UpstreamError(fmt.Errorf("translation service returned %d", resp.StatusCode))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", pipeline.UpstreamError(err)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", pipeline.UpstreamError(fmt.Errorf("empty translation response"))
	}

	return out.Candidates[0].Content.Parts[0].Text, nil
}

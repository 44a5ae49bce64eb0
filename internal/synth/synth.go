package synth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/linguist-ai/linguist-bridge/internal/pipeline"
)

// VoiceFor maps a target language to its fixed voice profile. Deterministic
// and not user-configurable.
func VoiceFor(language string) string {
	if language == "Hindi" {
		return "Puck"
	}
	return "Kore"
}

// Stage performs the text-to-speech call: text in, decoded PCM out.
type Stage struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// New creates a synthesis stage against a generateContent-style TTS endpoint.
func New(endpoint, apiKey string) *Stage {
	return &Stage{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type ttsRequest struct {
	Contents         []ttsContent `json:"contents"`
	GenerationConfig ttsGenConfig `json:"generationConfig"`
}

type ttsContent struct {
	Parts []ttsPart `json:"parts"`
}

type ttsPart struct {
	Text string `json:"text"`
}

type ttsGenConfig struct {
	ResponseModalities []string        `json:"responseModalities"`
	SpeechConfig       ttsSpeechConfig `json:"speechConfig"`
}

type ttsSpeechConfig struct {
	VoiceConfig ttsVoiceConfig `json:"voiceConfig"`
}

type ttsVoiceConfig struct {
	PrebuiltVoiceConfig ttsPrebuiltVoice `json:"prebuiltVoiceConfig"`
}

type ttsPrebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type ttsResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				InlineData struct {
					MimeType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Synthesize converts translated text into raw 16-bit PCM using the voice
// profile fixed for the target language. The payload arrives base64-encoded
// and is decoded here; a decode failure yields no partial audio.
func (s *Stage) Synthesize(ctx context.Context, text, targetLanguage string) ([]byte, error) {
	reqBody := ttsRequest{
		Contents: []ttsContent{{Parts: []ttsPart{{Text: text}}}},
		GenerationConfig: ttsGenConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: ttsSpeechConfig{
				VoiceConfig: ttsVoiceConfig{
					PrebuiltVoiceConfig: ttsPrebuiltVoice{VoiceName: VoiceFor(targetLanguage)},
				},
			},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, pipeline.UpstreamError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, pipeline.UpstreamError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, pipeline.UpstreamError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, pipeline.UpstreamError(fmt.Errorf("synthesis service returned %d", resp.StatusCode))
	}

	var out ttsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, pipeline.UpstreamError(err)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, pipeline.UpstreamError(fmt.Errorf("empty synthesis response"))
	}

	encoded := out.Candidates[0].Content.Parts[0].InlineData.Data
	if encoded == "" {
		return nil, pipeline.UpstreamError(fmt.Errorf("synthesis response carried no audio"))
	}

	pcm, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, pipeline.UpstreamError(fmt.Errorf("audio decode failed: %v", err))
	}
	return pcm, nil
}

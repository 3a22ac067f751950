package nutrition

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// GoogleTranslateBaseURL is the Cloud Translation v2 endpoint.
const GoogleTranslateBaseURL = "https://translation.googleapis.com/language/translate/v2"

// GoogleTranslator uses the Google Cloud Translation v2 REST API.
type GoogleTranslator struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

func NewGoogleTranslator(apiKey, baseURL string, client *http.Client) *GoogleTranslator {
	if baseURL == "" {
		baseURL = GoogleTranslateBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &GoogleTranslator{client: client, apiKey: apiKey, baseURL: baseURL}
}

func (g *GoogleTranslator) Translate(ctx context.Context, text, target string) (string, error) {
	body, err := json.Marshal(map[string]string{"q": text, "target": target})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal translate request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"?key="+g.apiKey, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to construct translate request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to call translate api")
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read translate response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Errorf("translate api returned status %d: %s", resp.StatusCode, b)
	}

	var decoded struct {
		Data struct {
			Translations []struct {
				TranslatedText string `json:"translatedText"`
			} `json:"translations"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		return "", errors.Wrap(err, "failed to decode translate response")
	}
	if len(decoded.Data.Translations) == 0 {
		return "", errors.New("translate api returned no translations")
	}
	return decoded.Data.Translations[0].TranslatedText, nil
}

// LLMTranslatorConfig configures an OpenAI-compatible chat model used for translation.
type LLMTranslatorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMTranslator asks an OpenAI-compatible chat model for a translation.
type LLMTranslator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewLLMTranslator(cfg LLMTranslatorConfig) *LLMTranslator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LLMTranslator{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: timeout,
	}
}

const translatePrompt = "You translate food names. Reply with the translation into the requested language only, without quotes or explanation."

func (t *LLMTranslator) Translate(ctx context.Context, text, target string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	slog.Debug("LLM: Translate request", "model", t.model, "target", target)
	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       t.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: translatePrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Language: " + target + "\nText: " + text},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "LLM translate failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from LLM")
	}
	return strings.Trim(strings.TrimSpace(resp.Choices[0].Message.Content), `"`), nil
}

package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"alertiq/internal/mail"
	"alertiq/internal/shared/retry"
	"alertiq/internal/shared/telemetry"
)

const (
	geminiBaseURL  = "https://generativelanguage.googleapis.com/v1beta"
	defaultTimeout = 60 * time.Second
)

// GeminiClient implements Classifier using the Gemini generateContent API.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	retry      retry.Policy
}

// NewGeminiClient constructs a Gemini classifier client.
func NewGeminiClient(apiKey, model string, policy retry.Policy) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = "gemini-pro"
	}
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		retry: policy,
	}, nil
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature float32 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Analyze submits the rubric prompt for one email and parses the verdict.
// Transport failures are retried with bounded backoff; a response that
// cannot be parsed is a permanent ErrBadResponse failure.
func (c *GeminiClient) Analyze(ctx context.Context, email mail.EmailData) (*Analysis, error) {
	prompt := BuildPrompt(email)

	var text string
	err := c.retry.Do(ctx, func() error {
		out, err := c.generateOnce(ctx, prompt)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gemini request: %w", err)
	}

	analysis, err := ParseResponse(text)
	if err != nil {
		telemetry.Error("classify.parse_failed", map[string]any{
			"message_id": email.MessageID,
			"error":      err.Error(),
		})
		return nil, err
	}

	telemetry.Info("classify.complete", map[string]any{
		"message_id": email.MessageID,
		"action":     string(analysis.Action),
		"confidence": analysis.Confidence,
	})
	return analysis, nil
}

func (c *GeminiClient) generateOnce(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			Temperature: 0,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("gemini response parse: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("gemini error: %s (%s)", parsed.Error.Message, parsed.Error.Status)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini status %d", resp.StatusCode)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response missing candidates")
	}

	var b strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("gemini response empty content")
	}
	return text, nil
}

// Ping verifies the client is configured. The model endpoint is not hit;
// a real call is paid per token, so test mode only checks wiring.
func (c *GeminiClient) Ping(ctx context.Context) error {
	if strings.TrimSpace(c.apiKey) == "" || strings.TrimSpace(c.model) == "" {
		return fmt.Errorf("gemini client not configured")
	}
	return nil
}

var _ Classifier = (*GeminiClient)(nil)

package suggest

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AryaBuddha/iclicker-evade/internal/logging"
)

const (
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultTimeout  = 30 * time.Second
)

const analysisPrompt = `You are helping with a multiple choice clicker question.
Analyze the screenshot and pick the best answer.

Respond with JSON only, in this exact shape:
{"answer": "A|B|C|D|E", "confidence": 0.0-1.0, "reasoning": "brief explanation"}

Confidence reflects how certain you are. If the question is unclear, give
your best guess with lower confidence.`

// OpenAIClient requests answer suggestions from an OpenAI vision model.
type OpenAIClient struct {
	apiKey   string
	model    string
	endpoint string
	timeout  time.Duration
	http     *http.Client
	log      *logging.Logger
	now      func() time.Time
}

// NewOpenAIClient builds a client for the given model (e.g. "gpt-4o").
func NewOpenAIClient(apiKey, model string, log *logging.Logger) *OpenAIClient {
	if log == nil {
		log = logging.NewDiscard()
	}
	return &OpenAIClient{
		apiKey:   apiKey,
		model:    model,
		endpoint: defaultEndpoint,
		timeout:  defaultTimeout,
		http:     &http.Client{},
		log:      log,
		now:      time.Now,
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Suggest sends the snapshot and extracted text to the model and parses its
// advisory answer. The call is bounded by the client timeout.
func (c *OpenAIClient) Suggest(imagePath, questionText string) (*Suggestion, error) {
	start := c.now()

	img, err := loadScaled(imagePath)
	if err != nil {
		return nil, fmt.Errorf("prepare snapshot: %w", err)
	}

	prompt := analysisPrompt
	if questionText != "" {
		prompt += "\n\nExtracted question text (if helpful): " + questionText
	}

	payload := chatRequest{
		Model:     c.model,
		MaxTokens: 512,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{
					URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
				}},
			},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("suggestion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("suggestion request: %s", resp.Status)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("empty model response")
	}

	suggestion, err := parseSuggestion(decoded.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	suggestion.Model = c.model
	suggestion.Elapsed = c.now().Sub(start)
	c.log.Info("suggestion received", "choice", suggestion.Choice, "confidence", suggestion.Confidence, "elapsed", suggestion.Elapsed.String())
	return suggestion, nil
}

// Ping makes a cheap authenticated call to verify the API key works.
func (c *OpenAIClient) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.openai.com/v1/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("connection test: %s", resp.Status)
	}
	return nil
}

// parseSuggestion extracts the JSON verdict from the model's reply, which
// may be wrapped in a markdown code fence.
func parseSuggestion(content string) (*Suggestion, error) {
	content = strings.TrimSpace(content)
	if i := strings.Index(content, "{"); i >= 0 {
		if j := strings.LastIndex(content, "}"); j > i {
			content = content[i : j+1]
		}
	}

	var verdict struct {
		Answer     string  `json:"answer"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return nil, fmt.Errorf("malformed model verdict: %w", err)
	}

	choice := strings.ToUpper(strings.TrimSpace(verdict.Answer))
	switch choice {
	case "A", "B", "C", "D", "E":
	default:
		return nil, fmt.Errorf("model suggested invalid answer %q", verdict.Answer)
	}

	confidence := verdict.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &Suggestion{
		Choice:     choice,
		Confidence: confidence,
		Reasoning:  verdict.Reasoning,
	}, nil
}

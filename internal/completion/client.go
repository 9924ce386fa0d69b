// Package completion клиент chat-completions API, которым переписываются
// пояснения к рекомендациям.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/magabrotheeeer/telehealth-storefront/internal/config"
)

// ErrDisabled клиент не настроен.
var ErrDisabled = errors.New("completion client disabled")

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Client обращается к chat-completions API.
type Client struct {
	apiURL     string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient создаёт клиента.
func NewClient(cfg config.Completion) *Client {
	return &Client{
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled сообщает, задан ли ключ API.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// Complete отправляет системную инструкцию и текст пользователя и возвращает ответ модели.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	const op = "completion.Complete"
	if !c.Enabled() {
		return "", ErrDisabled
	}

	var buf bytes.Buffer
	err := json.NewEncoder(&buf).Encode(chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   300,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/chat/completions", &buf)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode,
			gjson.GetBytes(body, "error.message").String())
	}

	content := strings.TrimSpace(gjson.GetBytes(body, "choices.0.message.content").String())
	if content == "" {
		return "", fmt.Errorf("%s: empty completion", op)
	}
	return content, nil
}

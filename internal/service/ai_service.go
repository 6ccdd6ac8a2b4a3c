package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/yourusername/carmarket-api/internal/domain/entity"
)

// AIClient генерирует текст по запросу. Реализация выбирается по
// конфигурации: настоящий провайдер или заглушка.
type AIClient interface {
	GenerateText(ctx context.Context, system, prompt string) (string, error)
}

// StubAIClient возвращает шаблонный текст вместо обращения к провайдеру.
// Используется, когда AI-провайдер не сконфигурирован, по той же схеме,
// что и dummy-режим отправки OTP.
type StubAIClient struct{}

func (c *StubAIClient) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	log.Printf("[AIClient] stub generation (no provider configured)")
	return fmt.Sprintf("[draft] %s", prompt), nil
}

// HTTPAIClient обращается к OpenAI-совместимому chat-completions API.
// Провайдер задается конфигурацией: базовый URL, ключ и модель.
type HTTPAIClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewHTTPAIClient создает клиента AI-провайдера
func NewHTTPAIClient(baseURL, apiKey, model string) (*HTTPAIClient, error) {
	if baseURL == "" || apiKey == "" || model == "" {
		return nil, fmt.Errorf("AI provider base URL, key and model are required")
	}
	return &HTTPAIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *HTTPAIClient) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("AI provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("AI provider returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse AI response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("AI provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("AI provider returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// listingDescriptionPrompt собирает запрос на описание объявления
func listingDescriptionPrompt(listing *entity.Listing) string {
	return fmt.Sprintf(
		"Write a selling description for a car listing. Make: %s, model: %s, year: %d, mileage: %d km, condition: %s, city: %s, price: Rp%d.",
		listing.Make, listing.Model, listing.Year, listing.Mileage, listing.Condition, listing.City, listing.Price,
	)
}

const listingDescriptionSystem = "You are a copywriter for a car marketplace. Be concise and honest, never invent specifications."

const articleSystem = "You are an editor of an automotive online magazine. Write informative articles with subheadings."

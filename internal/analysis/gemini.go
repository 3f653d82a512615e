// Package analysis summarizes ledger entries and answers free-form
// questions through a Gemini model.
package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/cupitman9/family-budget-bot/internal/model"
)

const analystPrompt = "Ты финансовый аналитик. На основе статистики расходов и доходов сделай краткий, " +
	"понятный и конкретный анализ, без воды. В конце дай 3–5 практичных советов по оптимизации расходов. " +
	"Пиши по-русски, структурированно, с эмодзи по желанию."

// generateFunc sends one prompt and returns the model's text.
type generateFunc func(ctx context.Context, prompt string) (string, error)

type Analyst struct {
	generate generateFunc
	log      *logrus.Logger
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

// NewGemini creates an Analyst backed by the Gemini API.
func NewGemini(ctx context.Context, cfg GeminiConfig, log *logrus.Logger) (*Analyst, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	modelName := cfg.Model
	generate := func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, modelName, genai.Text(prompt), nil)
		if err != nil {
			return "", fmt.Errorf("failed to generate content: %w", err)
		}
		return resp.Text(), nil
	}
	return newAnalyst(generate, log), nil
}

func newAnalyst(generate generateFunc, log *logrus.Logger) *Analyst {
	return &Analyst{generate: generate, log: log}
}

// SummarizeFinances asks the model to comment on the statistics of entries.
func (a *Analyst) SummarizeFinances(ctx context.Context, entries []model.LedgerEntry) (string, error) {
	if len(entries) == 0 {
		return "", model.ErrInsufficientData
	}

	stats := BuildStats(entries)
	a.log.WithFields(logrus.Fields{
		"entries":    len(entries),
		"categories": len(stats.Categories),
	}).Info("requesting expense analysis")

	return a.ask(ctx, analystPrompt+"\n\nДАННЫЕ:\n"+stats.String())
}

func (a *Analyst) AnswerFreeform(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", model.ErrInsufficientData
	}
	return a.ask(ctx, prompt)
}

func (a *Analyst) ask(ctx context.Context, prompt string) (string, error) {
	text, err := a.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("model returned an empty answer")
	}
	return text, nil
}

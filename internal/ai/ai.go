// Package ai generates task descriptions and workload summaries through Gemini.
// Every entry point degrades to a fixed message instead of returning an error.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"zenflow/internal/config"
	"zenflow/internal/domain"
)

const (
	DescriptionUnavailable = "AI is unavailable: no API key is configured."
	DescriptionFailed      = "Failed to generate the description with AI."
	DescriptionEmpty       = "No description was generated."

	WorkloadUnavailable = "Workload analysis is unavailable without an API key."
	WorkloadFailed      = "Workload analysis is not available right now."
	WorkloadEmpty       = "Workload analysis is unavailable."
)

// Generator is the capability the engine depends on.
type Generator interface {
	Available() bool
	GenerateDescription(ctx context.Context, title string) string
	AnalyzeWorkload(ctx context.Context, tasks []domain.Task) string
}

// Options are per-call sampling parameters.
type Options struct {
	Temperature     float32
	TopP            float32
	MaxOutputTokens int32
	ThinkingBudget  int32
}

// Model produces text for a prompt.
type Model interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

type Service struct {
	model Model
	cfg   config.AIConfig
	log   *zap.Logger
}

// New returns a Service backed by Gemini. An empty apiKey yields a Service
// that only answers with fallbacks.
func New(ctx context.Context, apiKey string, cfg config.AIConfig, log *zap.Logger) (*Service, error) {
	if strings.TrimSpace(apiKey) == "" {
		return NewWithModel(nil, cfg, log), nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return NewWithModel(&GeminiModel{client: client, model: cfg.Model}, cfg, log), nil
}

func NewWithModel(m Model, cfg config.AIConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{model: m, cfg: cfg, log: log.Named("ai")}
}

func (s *Service) Available() bool {
	return s != nil && s.model != nil
}

func (s *Service) GenerateDescription(ctx context.Context, title string) string {
	if !s.Available() {
		return DescriptionUnavailable
	}
	prompt := fmt.Sprintf(`Write a detailed professional task description in English for the title: %q.
Keep it concise, covering the goals and possible steps to complete it. Format with HTML tags (p, h3, ul, li).`, title)
	text, err := s.model.Generate(ctx, prompt, Options{
		Temperature:     s.cfg.Temperature,
		TopP:            s.cfg.TopP,
		MaxOutputTokens: s.cfg.MaxOutputTokens,
		ThinkingBudget:  s.cfg.ThinkingBudget,
	})
	if err != nil {
		s.log.Warn("generate description", zap.String("title", title), zap.Error(err))
		return DescriptionFailed
	}
	if strings.TrimSpace(text) == "" {
		return DescriptionEmpty
	}
	return text
}

type workloadItem struct {
	Title      string            `json:"title"`
	Status     domain.TaskStatus `json:"status"`
	Priority   domain.Priority   `json:"priority"`
	AssignedTo string            `json:"assigned_to"`
	ProjectID  string            `json:"project_id"`
}

func (s *Service) AnalyzeWorkload(ctx context.Context, tasks []domain.Task) string {
	if !s.Available() {
		return WorkloadUnavailable
	}
	items := make([]workloadItem, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, workloadItem{Title: t.Title, Status: t.Status, Priority: t.Priority, AssignedTo: t.AssignedTo, ProjectID: t.ProjectID})
	}
	data, err := json.Marshal(items)
	if err != nil {
		s.log.Warn("encode workload", zap.Error(err))
		return WorkloadFailed
	}
	prompt := fmt.Sprintf(`Analyze these tasks and give a short English report on the team's workload: %s
Include a forecast and recommendations.`, data)
	text, err := s.model.Generate(ctx, prompt, Options{
		Temperature:     0.2,
		MaxOutputTokens: 400,
		ThinkingBudget:  s.cfg.ThinkingBudget,
	})
	if err != nil {
		s.log.Warn("analyze workload", zap.Int("tasks", len(tasks)), zap.Error(err))
		return WorkloadFailed
	}
	if strings.TrimSpace(text) == "" {
		return WorkloadEmpty
	}
	return text
}

// GeminiModel calls the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

func (g *GeminiModel) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(opts.Temperature),
		MaxOutputTokens: opts.MaxOutputTokens,
	}
	if opts.TopP > 0 {
		cfg.TopP = genai.Ptr(opts.TopP)
	}
	if opts.ThinkingBudget > 0 {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(opts.ThinkingBudget)}
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/PabloGalante/campfire/internal/domain"
)

type VertexConfig struct {
	ProjectID string
	Location  string
	Model     string
	Timeout   time.Duration
}

type VertexClient struct {
	client    *genai.Client
	modelName string
	timeout   time.Duration
}

// NewVertexClient creates a Generator backed by Vertex AI (Gemini).
func NewVertexClient(ctx context.Context, cfg VertexConfig) (*VertexClient, error) {
	if cfg.ProjectID == "" || cfg.Location == "" {
		return nil, fmt.Errorf("vertex project and location must be set")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.ProjectID,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &VertexClient{
		client:    client,
		modelName: cfg.Model,
		timeout:   cfg.Timeout,
	}, nil
}

// Generate implements domain.Generator.
func (v *VertexClient) Generate(ctx context.Context, in domain.GenerateInput) (*domain.GenerateResult, error) {
	p := BuildPrompt(in)

	var contents []*genai.Content
	for _, t := range p.History {
		role := genai.Role(genai.RoleUser)
		if t.Role == domain.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(p.InstructionText(), genai.RoleUser))

	temp := float32(0.8)
	topP := float32(0.95)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(p.System, genai.RoleUser),
		Temperature:       &temp,
		TopP:              &topP,
		MaxOutputTokens:   int32(1024),
	}

	text, err := v.generateText(ctx, contents, cfg)
	if err != nil {
		return nil, err
	}

	return &domain.GenerateResult{
		Drafts: []domain.Draft{{Role: domain.RoleAssistant, Text: text}},
	}, nil
}

func (v *VertexClient) generateText(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	res, err := v.client.Models.GenerateContent(ctx, v.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("vertex generate content: %w", err)
	}

	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", fmt.Errorf("vertex returned empty text: %w", domain.ErrEmptyGeneration)
	}
	return text, nil
}

const moderationPrompt = `You review player input for a role-playing game suitable for a general audience.
Answer with exactly one word: ALLOW if the text is acceptable as a character name, description or in-game action, BLOCK otherwise.`

// VertexModerator is a domain.Moderator that asks the model to classify text.
type VertexModerator struct {
	vertex *VertexClient
}

func NewVertexModerator(v *VertexClient) *VertexModerator {
	return &VertexModerator{vertex: v}
}

func (m *VertexModerator) Check(ctx context.Context, text string) (bool, error) {
	temp := float32(0)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(moderationPrompt, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   int32(4),
	}
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	verdict, err := m.vertex.generateText(ctx, contents, cfg)
	if err != nil {
		return false, err
	}
	return parseVerdict(verdict)
}

func parseVerdict(s string) (bool, error) {
	switch v := strings.ToUpper(strings.Trim(strings.TrimSpace(s), ".!")); v {
	case "ALLOW":
		return true, nil
	case "BLOCK":
		return false, nil
	default:
		return false, fmt.Errorf("unexpected moderation verdict %q", s)
	}
}

var (
	_ domain.Generator = (*VertexClient)(nil)
	_ domain.Moderator = (*VertexModerator)(nil)
)

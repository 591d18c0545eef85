package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/parleyhq/parley/config"
	apiError "github.com/parleyhq/parley/errors"
	"github.com/parleyhq/parley/models"
)

// maxReplySuggestions caps how many reply suggestions one request returns.
const maxReplySuggestions = 3

// GenerativeClient abstracts the text generation backend so the service can
// be exercised without network access.
type GenerativeClient interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// AIService turns conversation context into reply suggestions, summaries or
// an improved draft. It never stores anything; every call is stateless.
type AIService interface {
	Generate(ctx context.Context, request *models.AIRequest) (*models.AIResult, *apiError.Error)
}

// aiService struct
type aiService struct {
	Config *config.Config

	mu     sync.Mutex
	client GenerativeClient
}

// NewAIService instantiate an aiService backed by the Gemini API. The client
// is built lazily on first use so the server still boots without a key.
func NewAIService(conf *config.Config) AIService {
	return &aiService{Config: conf}
}

// NewAIServiceWithClient injects a generation backend, used by tests.
func NewAIServiceWithClient(conf *config.Config, client GenerativeClient) AIService {
	return &aiService{Config: conf, client: client}
}

func (s *aiService) Generate(ctx context.Context, request *models.AIRequest) (*models.AIResult, *apiError.Error) {
	if request.Type == "" {
		request.Type = models.AIModeReply
	}
	if request.Type == models.AIModeImprove && strings.TrimSpace(request.CurrentMessage) == "" {
		return nil, apiError.New("Current message is required", http.StatusBadRequest)
	}

	client, err := s.generativeClient(ctx)
	if err != nil {
		log.Printf("AI client init error: %v", err)
		return nil, apiError.New("AI service is not configured", http.StatusServiceUnavailable)
	}

	text, err := client.GenerateText(ctx, buildPrompt(request))
	if err != nil {
		log.Printf("AI generation error: %v", err)
		if isAPIKeyError(err) {
			return nil, apiError.New("AI service is not configured", http.StatusServiceUnavailable)
		}
		return nil, apiError.New("Failed to generate AI response", http.StatusInternalServerError)
	}

	result := &models.AIResult{}
	if request.Type == models.AIModeReply {
		result.Suggestions = parseSuggestions(text)
	} else {
		result.Result = strings.TrimSpace(text)
	}
	return result, nil
}

func (s *aiService) generativeClient(ctx context.Context) (GenerativeClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}
	if s.Config.GeminiApiKey == "" {
		return nil, fmt.Errorf("gemini api key is not set")
	}
	client, err := newGeminiClient(ctx, s.Config.GeminiApiKey, s.Config.GeminiModel)
	if err != nil {
		return nil, err
	}
	s.client = client
	return s.client, nil
}

// geminiClient adapts the Gemini SDK to GenerativeClient.
type geminiClient struct {
	model *genai.GenerativeModel
}

func newGeminiClient(ctx context.Context, apiKey, model string) (*geminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &geminiClient{model: client.GenerativeModel(model)}, nil
}

func (g *geminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from model")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}

// buildPrompt renders the conversation transcript into a mode-specific
// instruction for the model.
func buildPrompt(request *models.AIRequest) string {
	name := request.CurrentUserName
	if name == "" {
		name = "the user"
	}
	conversation := transcript(request.Messages)

	switch request.Type {
	case models.AIModeSummary:
		return fmt.Sprintf(
			"Summarize the following chat conversation in a few short sentences. Focus on decisions, questions and anything that needs a follow-up.\n\nConversation:\n%s",
			conversation,
		)
	case models.AIModeImprove:
		return fmt.Sprintf(
			"You are helping %s write a chat message. Improve the draft below: fix grammar, keep the tone casual and keep it about the same length. Return only the improved message with no extra commentary.\n\nConversation so far:\n%s\n\nDraft:\n%s",
			name, conversation, request.CurrentMessage,
		)
	default:
		return fmt.Sprintf(
			"You are helping %s reply in a chat conversation. Based on the messages below, suggest %d short, natural replies %s could send next. Return only the replies, one per line, with no numbering, bullets or quotes.\n\nConversation:\n%s",
			name, maxReplySuggestions, name, conversation,
		)
	}
}

// transcript renders messages as "sender: content" lines, tagging the
// requesting user's own messages.
func transcript(messages []models.AIMessage) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		sender := m.Sender
		if m.IsOwnMessage {
			sender += " (me)"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", sender, m.Content))
	}
	return strings.Join(lines, "\n")
}

// parseSuggestions splits model output into clean suggestion lines, stripping
// any numbering or bullets the model added despite instructions.
func parseSuggestions(text string) []string {
	suggestions := make([]string, 0, maxReplySuggestions)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*•0123456789.) ")
		line = strings.Trim(line, `"`)
		if line == "" {
			continue
		}
		suggestions = append(suggestions, line)
		if len(suggestions) == maxReplySuggestions {
			break
		}
	}
	return suggestions
}

func isAPIKeyError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "api key") ||
		strings.Contains(msg, "unauthenticated") ||
		strings.Contains(msg, "permission denied")
}

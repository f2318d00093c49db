package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"github.com/yukikurage/crm-pipeline-api/internal/pipeline"
)

type AIService struct {
	client *openai.Client
	model  string
	now    func() time.Time
}

type GeneratedTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

func NewAIService(apiKey string) *AIService {
	return NewAIServiceWithConfig(openai.DefaultConfig(apiKey))
}

// NewAIServiceWithConfig builds the service from a full client config, e.g.
// to point it at a proxy or a test server.
func NewAIServiceWithConfig(config openai.ClientConfig) *AIService {
	return &AIService{
		client: openai.NewClientWithConfig(config),
		model:  openai.GPT4o,
		now:    time.Now,
	}
}

// GenerateFollowUps suggests follow-up tasks for a deal from its notes
func (s *AIService) GenerateFollowUps(ctx context.Context, deal *models.Deal) ([]GeneratedTask, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	currentTime := s.now().Format("2006-01-02 15:04:05")
	prompt := fmt.Sprintf(`You are a sales assistant. Suggest concrete follow-up tasks that move the deal below forward.

Current time: %s

Deal: %s
Stage: %s
%s
Notes:
%s

Return a JSON array of tasks in this format:
[
  {
    "title": "short task title",
    "description": "what to do and why",
    "due_date": "deadline in ISO8601, e.g. 2025-10-28T23:59:59Z, or null if none is implied"
  }
]

Rules:
- Return an empty array [] if nothing needs to be done
- Convert relative deadlines ("tomorrow", "next week") into concrete dates
- due_date must be an ISO8601 string or null
- Return only JSON, with no explanation`, currentTime, deal.Title, pipeline.Label(deal.Stage), dealCounterparty(deal), deal.Notes)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)

	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)

	var tasks []GeneratedTask
	if err := json.Unmarshal([]byte(content), &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	return tasks, nil
}

func dealCounterparty(deal *models.Deal) string {
	var parts []string
	if deal.Company != nil {
		parts = append(parts, "Company: "+deal.Company.Name)
	}
	if deal.Contact != nil {
		parts = append(parts, "Contact: "+strings.TrimSpace(deal.Contact.FirstName+" "+deal.Contact.LastName))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, "\n") + "\n"
}

// stripCodeFence removes a ```json fence some models wrap around their output.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

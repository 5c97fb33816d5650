package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/xeipuuv/gojsonschema"

	"github.com/carepath/carepath/internal/model"
)

// replySchema is the contract the model must honor. Anything else — prose,
// extra keys, empty message — is rejected and the canned text stands.
const replySchema = `{
	"type": "object",
	"required": ["assistant_message"],
	"properties": {
		"assistant_message": {"type": "string", "minLength": 1}
	},
	"additionalProperties": false
}`

const systemPrompt = `당신은 증상 안내 서비스의 음성 도우미입니다. 주어진 안내 문장을 자연스럽고 따뜻한 한국어 존댓말로 다듬어 주세요.

규칙:
1. 의학적 판단(긴급도, 추천 장소)을 바꾸지 마세요.
2. 제공된 장소 이름과 거리 외의 사실을 추가하지 마세요.
3. 두 문장 이내로 간결하게 답하세요.
4. 반드시 {"assistant_message": "..."} 형태의 JSON만 출력하세요.`

// OpenAIProvider refines canned messages through the Chat Completions API
type OpenAIProvider struct {
	client *openai.Client
	cfg    model.AssistConfig
	schema *gojsonschema.Schema
}

// NewOpenAIProvider creates an OpenAI-backed refiner
func NewOpenAIProvider(cfg model.AssistConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(replySchema))
	if err != nil {
		return nil, fmt.Errorf("compile reply schema: %w", err)
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		schema: schema,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Refine rewrites the canned message. Every failure mode returns an error;
// the composer decides what that means (it keeps the canned text).
func (p *OpenAIProvider) Refine(ctx context.Context, req RefineRequest) (string, error) {
	chatModel := p.cfg.Model
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}

	maxTokens := p.cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 300
	}

	timeout := p.cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctxWithTimeout, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(req),
			},
		},
		MaxTokens:      maxTokens,
		Temperature:    p.cfg.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	return p.parseReply(strings.TrimSpace(resp.Choices[0].Message.Content))
}

// parseReply validates the raw model output against the reply schema before
// trusting it
func (p *OpenAIProvider) parseReply(content string) (string, error) {
	result, err := p.schema.Validate(gojsonschema.NewStringLoader(content))
	if err != nil {
		return "", fmt.Errorf("validate reply: %w", err)
	}
	if !result.Valid() {
		return "", fmt.Errorf("reply violates schema: %v", result.Errors())
	}

	var reply struct {
		AssistantMessage string `json:"assistant_message"`
	}
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return "", fmt.Errorf("decode reply: %w", err)
	}

	return strings.TrimSpace(reply.AssistantMessage), nil
}

func buildPrompt(req RefineRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "사용자 증상: %s\n", req.Transcript)
	fmt.Fprintf(&b, "긴급도: %s\n", req.Tier)
	fmt.Fprintf(&b, "안내 문장: %s\n", req.Canned)

	if len(req.Places) > 0 {
		b.WriteString("추천 장소:\n")
		for i, place := range req.Places {
			if i >= 3 {
				break
			}
			fmt.Fprintf(&b, "- %s (%.2fkm)\n", place.Name, place.DistanceKm)
		}
	}

	return b.String()
}

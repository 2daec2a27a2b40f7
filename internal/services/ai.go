package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pmpulse/backend/pkg/logger"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ollama/ollama/api"
	"github.com/pmpulse/backend/internal/config"
	"github.com/pmpulse/backend/internal/models"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
	"gorm.io/gorm"
)

type AIService struct {
	db            *gorm.DB
	config        *config.OpenAIConfig
	configService *SystemConfigService
}

func NewAIService(db *gorm.DB, cfg *config.OpenAIConfig) *AIService {
	return &AIService{
		db:            db,
		config:        cfg,
		configService: NewSystemConfigService(db),
	}
}

// ChatCompletion sends a single-turn prompt through the configured LLM chain.
// Configs are tried in order (preferred, default, remaining active) until one
// succeeds.
func (s *AIService) ChatCompletion(ctx context.Context, prompt string, temperature float64) (string, error) {
	llmConfigs := s.getOrderedLLMConfigs()
	if len(llmConfigs) == 0 {
		return "", fmt.Errorf("no LLM configuration available")
	}

	var lastErr error
	for i, llmConfig := range llmConfigs {
		logger.Infof("[AI] Attempting LLM %d/%d: %s (model: %s)", i+1, len(llmConfigs), llmConfig.Name, llmConfig.Model)

		content, err := s.callLLM(ctx, &llmConfig, prompt, temperature)
		if err == nil {
			return content, nil
		}

		lastErr = err
		logger.Infof("[AI] LLM %s failed: %v, trying next...", llmConfig.Name, err)
	}

	return "", fmt.Errorf("all LLMs failed, last error: %w", lastErr)
}

func (s *AIService) getOrderedLLMConfigs() []models.LLMConfig {
	var configs []models.LLMConfig

	if preferredID := s.getPreferredLLMConfigID(); preferredID > 0 {
		var preferred models.LLMConfig
		if err := s.db.Where("id = ? AND is_active = ?", preferredID, true).First(&preferred).Error; err == nil {
			configs = append(configs, preferred)
		}
	}

	var defaultConfig models.LLMConfig
	if err := s.db.Where("is_default = ? AND is_active = ?", true, true).First(&defaultConfig).Error; err == nil {
		if len(configs) == 0 || configs[0].ID != defaultConfig.ID {
			configs = append(configs, defaultConfig)
		}
	}

	var backupConfigs []models.LLMConfig
	existingIDs := make(map[uint]bool)
	for _, c := range configs {
		existingIDs[c.ID] = true
	}
	s.db.Where("is_active = ?", true).Order("id ASC").Find(&backupConfigs)
	for _, c := range backupConfigs {
		if !existingIDs[c.ID] {
			configs = append(configs, c)
		}
	}

	if len(configs) == 0 && s.config.APIKey != "" {
		configs = append(configs, models.LLMConfig{
			Name:    "fallback",
			BaseURL: s.config.BaseURL,
			APIKey:  s.config.APIKey,
			Model:   s.config.Model,
		})
	}

	return configs
}

func (s *AIService) getPreferredLLMConfigID() uint {
	val := s.configService.GetWithDefault("summary_llm_config_id", "0")
	id, err := strconv.Atoi(val)
	if err != nil || id < 0 {
		return 0
	}
	return uint(id)
}

// callLLM dispatches to the appropriate provider-specific function based on Provider field
func (s *AIService) callLLM(ctx context.Context, llmConfig *models.LLMConfig, prompt string, temperature float64) (string, error) {
	logger.Infof("[AI] Using provider: %s, model: %s, baseURL: %s", llmConfig.Provider, llmConfig.Model, llmConfig.BaseURL)

	switch llmConfig.Provider {
	case "anthropic":
		return s.callAnthropic(ctx, llmConfig, prompt)
	case "ollama":
		return s.callOllama(ctx, llmConfig, prompt, temperature)
	case "gemini":
		return s.callGemini(ctx, llmConfig, prompt)
	case "azure":
		return s.callAzure(ctx, llmConfig, prompt, temperature)
	default:
		// openai and other OpenAI-compatible services
		return s.callOpenAI(ctx, llmConfig, prompt, temperature)
	}
}

// callOpenAI handles OpenAI and OpenAI-compatible APIs (including custom endpoints)
func (s *AIService) callOpenAI(ctx context.Context, llmConfig *models.LLMConfig, prompt string, temperature float64) (string, error) {
	clientConfig := openai.DefaultConfig(llmConfig.APIKey)
	if llmConfig.BaseURL != "" {
		clientConfig.BaseURL = llmConfig.BaseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: llmConfig.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: effectiveTemperature(llmConfig, temperature),
	})

	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	logger.Infof("[AI] OpenAI response length: %d chars", len(content))

	return content, nil
}

// callAnthropic handles Anthropic Claude API using the native SDK
func (s *AIService) callAnthropic(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (string, error) {
	client := anthropic.NewClient(
		option.WithAPIKey(llmConfig.APIKey),
	)

	maxTokens := int64(llmConfig.MaxTokens)
	if maxTokens == 0 {
		maxTokens = 4096
	}

	model := llmConfig.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("Anthropic API error: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	logger.Infof("[AI] Anthropic response length: %d chars", len(content))

	return content, nil
}

// callOllama handles Ollama API using the native SDK
func (s *AIService) callOllama(ctx context.Context, llmConfig *models.LLMConfig, prompt string, temperature float64) (string, error) {
	baseURL := llmConfig.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid Ollama base URL: %w", err)
	}
	client := api.NewClient(u, http.DefaultClient)

	model := llmConfig.Model
	if model == "" {
		model = "llama3"
	}

	if temperature <= 0 {
		temperature = llmConfig.Temperature
	}

	var content strings.Builder
	err = client.Chat(ctx, &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Options: map[string]interface{}{
			"temperature": temperature,
		},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})

	if err != nil {
		return "", fmt.Errorf("Ollama API error: %w", err)
	}

	result := content.String()
	logger.Infof("[AI] Ollama response length: %d chars", len(result))

	return result, nil
}

// callGemini handles Google Gemini API using the native SDK
func (s *AIService) callGemini(ctx context.Context, llmConfig *models.LLMConfig, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: llmConfig.APIKey,
	})
	if err != nil {
		return "", fmt.Errorf("Gemini client error: %w", err)
	}

	model := llmConfig.Model
	if model == "" {
		model = "gemini-3.0-flash"
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	content := resp.Text()
	logger.Infof("[AI] Gemini response length: %d chars", len(content))

	return content, nil
}

// callAzure handles Azure OpenAI API using special configuration
func (s *AIService) callAzure(ctx context.Context, llmConfig *models.LLMConfig, prompt string, temperature float64) (string, error) {
	// Azure requires BaseURL format: https://{resource-name}.openai.azure.com
	// Model field is used as deployment name
	azureConfig := openai.DefaultAzureConfig(llmConfig.APIKey, llmConfig.BaseURL)
	client := openai.NewClientWithConfig(azureConfig)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: llmConfig.Model, // In Azure, this is the deployment name
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: effectiveTemperature(llmConfig, temperature),
	})

	if err != nil {
		return "", fmt.Errorf("Azure OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from Azure OpenAI")
	}

	content := resp.Choices[0].Message.Content
	logger.Infof("[AI] Azure OpenAI response length: %d chars", len(content))

	return content, nil
}

func effectiveTemperature(llmConfig *models.LLMConfig, requested float64) float32 {
	if requested > 0 {
		return float32(requested)
	}
	if llmConfig.Temperature > 0 {
		return float32(llmConfig.Temperature)
	}
	return 0.3
}

// CallWithConfig runs a prompt against one specific LLM config, falling back
// to the default when the requested config is missing or inactive. Used by
// the config test endpoint.
func (s *AIService) CallWithConfig(ctx context.Context, llmConfigID uint, prompt string) (string, string, error) {
	var llmConfig models.LLMConfig

	if llmConfigID > 0 {
		if err := s.db.Where("id = ? AND is_active = ?", llmConfigID, true).First(&llmConfig).Error; err != nil {
			logger.Infof("[AI] Specified LLM config %d not found or inactive, falling back to default", llmConfigID)
		}
	}

	if llmConfig.ID == 0 {
		if err := s.db.Where("is_default = ? AND is_active = ?", true, true).First(&llmConfig).Error; err != nil {
			var anyConfig models.LLMConfig
			if err := s.db.Where("is_active = ?", true).First(&anyConfig).Error; err != nil {
				return "", "", fmt.Errorf("no active LLM configuration available")
			}
			llmConfig = anyConfig
		}
	}

	logger.Infof("[AI] CallWithConfig using LLM: %s (ID: %d)", llmConfig.Name, llmConfig.ID)

	content, err := s.callLLM(ctx, &llmConfig, prompt, 0)
	if err != nil {
		return "", "", err
	}

	return content, llmConfig.Name, nil
}

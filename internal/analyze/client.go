package analyze

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"lawdesk/internal/config"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// FailureReason classifies why an analysis produced no narrative.
type FailureReason string

const (
	FailureMissingCredentials FailureReason = "missing_credentials"
	FailureServiceUnreachable FailureReason = "service_unreachable"
	FailureEmptyResponse      FailureReason = "empty_response"
)

// Outcome is the result of one analysis call. Failed outcomes still
// render as presentable text via Text, so callers treat success and
// failure uniformly as "the text to store and show".
type Outcome struct {
	Narrative string
	Reason    FailureReason
	Detail    string
}

func (o Outcome) Failed() bool { return o.Reason != "" }

const unavailableHeader = "⚠️ **AI Analysis Unavailable**"

// Text renders the outcome as user-facing prose.
func (o Outcome) Text() string {
	switch o.Reason {
	case "":
		return o.Narrative
	case FailureMissingCredentials:
		return unavailableHeader + "\n\nThe analysis service is not configured (no API key). " +
			"The document was saved and can be reviewed manually."
	case FailureServiceUnreachable:
		return fmt.Sprintf("%s\n\nThe analysis service could not be reached: %s. "+
			"The document was saved; try again later.", unavailableHeader, o.Detail)
	case FailureEmptyResponse:
		return unavailableHeader + "\n\nThe analysis service returned no content. " +
			"The document was saved and can be reviewed manually."
	default:
		return unavailableHeader
	}
}

// chatModelFactory builds the provider-specific chat model. Tests swap
// it to avoid real SDK construction.
var chatModelFactory = buildChatModel

// Client issues analysis calls against the configured provider. The
// chat model is built on first use and reused after that.
type Client struct {
	providerName string
	provider     config.ProviderConfig
	tuning       config.AnalysisConfig
	logger       *zap.Logger

	mu    sync.Mutex
	model model.BaseChatModel
}

func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	name := cfg.Analysis.Provider
	if name == "" {
		name = "openai"
	}
	tuning := cfg.Analysis
	tuning.Normalize()
	return &Client{
		providerName: name,
		provider:     cfg.Providers[name],
		tuning:       tuning,
		logger:       logger,
	}
}

// Analyze runs the initial document analysis for the prompt.
func (c *Client) Analyze(ctx context.Context, prompt string) Outcome {
	return c.generate(ctx, prompt, c.tuning.MaxTokens)
}

// Answer runs a follow-up question prompt with the tighter response cap.
func (c *Client) Answer(ctx context.Context, prompt string) Outcome {
	return c.generate(ctx, prompt, c.tuning.FollowupMaxTokens)
}

func (c *Client) generate(ctx context.Context, prompt string, maxTokens int) Outcome {
	// credential check happens before any model or network activity
	if strings.TrimSpace(c.provider.APIKey) == "" {
		return Outcome{
			Reason: FailureMissingCredentials,
			Detail: fmt.Sprintf("no API key configured for provider %s", c.providerName),
		}
	}

	chatModel, err := c.chatModel(ctx)
	if err != nil {
		c.logger.Error("build chat model failed",
			zap.String("provider", c.providerName),
			zap.Error(err))
		return Outcome{Reason: FailureServiceUnreachable, Detail: err.Error()}
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(c.tuning.TimeoutSeconds)*time.Second)
	defer cancel()

	msg, err := chatModel.Generate(callCtx,
		[]*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(prompt),
		},
		model.WithTemperature(c.tuning.Temperature),
		model.WithMaxTokens(maxTokens),
	)
	if err != nil {
		c.logger.Warn("analysis call failed",
			zap.String("provider", c.providerName),
			zap.Error(err))
		return Outcome{Reason: FailureServiceUnreachable, Detail: err.Error()}
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return Outcome{Reason: FailureEmptyResponse, Detail: "model returned no content"}
	}
	return Outcome{Narrative: msg.Content}
}

func (c *Client) chatModel(ctx context.Context) (model.BaseChatModel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model != nil {
		return c.model, nil
	}
	m, err := chatModelFactory(ctx, c.providerName, c.provider, c.tuning)
	if err != nil {
		return nil, err
	}
	c.model = m
	return m, nil
}

func buildChatModel(ctx context.Context, providerName string, provCfg config.ProviderConfig, tuning config.AnalysisConfig) (model.BaseChatModel, error) {
	switch providerName {
	case "openai":
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   provCfg.Model,
			APIKey:  provCfg.APIKey,
		})
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: provCfg.APIKey})
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  provCfg.Model,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     provCfg.Model,
			BaseURL:   baseURLPtr,
			MaxTokens: tuning.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", providerName)
	}
}

package inference

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"github.com/hoangvvo/llm-sdk/sdk-go/openai"
)

const (
	DefaultGatewayURL = "https://agent-gateway.livekit.cloud/v1"
	DefaultTokenTTL   = time.Hour
)

// Gateway serves models for every provider behind one OpenAI-compatible
// endpoint, authenticated with a short-lived token signed by the API secret.
type Gateway struct {
	URL       string
	APIKey    string
	APISecret string
	TokenTTL  time.Duration
}

// GatewayFromEnv reads LIVEKIT_INFERENCE_URL, LIVEKIT_API_KEY and
// LIVEKIT_API_SECRET.
func GatewayFromEnv(getenv func(string) string) Gateway {
	url := getenv("LIVEKIT_INFERENCE_URL")
	if url == "" {
		url = DefaultGatewayURL
	}
	return Gateway{
		URL:       url,
		APIKey:    getenv("LIVEKIT_API_KEY"),
		APISecret: getenv("LIVEKIT_API_SECRET"),
		TokenTTL:  DefaultTokenTTL,
	}
}

// AccessToken mints a gateway token valid from now for the token TTL.
func (g Gateway) AccessToken(now time.Time) (string, error) {
	if g.APIKey == "" || g.APISecret == "" {
		return "", errors.New("inference gateway credentials are not set (LIVEKIT_API_KEY, LIVEKIT_API_SECRET)")
	}
	ttl := g.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	claims := jwt.RegisteredClaims{
		Issuer:    g.APIKey,
		Subject:   "voice-agent",
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(g.APISecret))
	if err != nil {
		return "", fmt.Errorf("sign inference token: %w", err)
	}
	return token, nil
}

// LanguageModel resolves an LLM selector to a model served by the gateway.
// The gateway routes on the full "provider/model" identifier.
func (g Gateway) LanguageModel(sel Selector) (llmsdk.LanguageModel, error) {
	if sel.Kind != KindLLM {
		return nil, fmt.Errorf("selector %s is not a language model", sel)
	}
	token, err := g.AccessToken(time.Now())
	if err != nil {
		return nil, err
	}
	url := g.URL
	if url == "" {
		url = DefaultGatewayURL
	}

	return openai.NewOpenAIChatModel(sel.String(), openai.OpenAIChatModelOptions{
		BaseURL: url,
		APIKey:  token,
	}), nil
}

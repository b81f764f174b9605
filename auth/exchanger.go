package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Exchanger trades OAuth2 authorization codes for access tokens at the
// identity provider's token endpoint.
type Exchanger struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewExchanger creates a new token exchanger
func NewExchanger(baseURL, anonKey string, timeout time.Duration) *Exchanger {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Exchanger{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		anonKey: anonKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// tokenResponse is the provider's token endpoint payload
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ExchangeCode exchanges an authorization code for an access token
func (e *Exchanger) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	form := url.Values{
		"code":         {code},
		"redirect_uri": {redirectURI},
	}

	endpoint := e.baseURL + "/auth/v1/token?grant_type=authorization_code"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("apikey", e.anonKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange rejected: status code %d", resp.StatusCode)
	}

	var tokens tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokens.AccessToken == "" {
		return "", fmt.Errorf("token response missing access token")
	}

	return tokens.AccessToken, nil
}

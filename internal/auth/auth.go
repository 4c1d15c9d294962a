// Package auth obtains an authenticated HTTP client for the Google Calendar
// API, from either an OAuth installed-app credential (interactive first run,
// cached token afterwards) or a service-account key (headless).
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

const tokenFilePermMode = 0o600

// CredentialType represents the type of authentication credentials.
type CredentialType int

const (
	CredentialTypeUnknown CredentialType = iota
	CredentialTypeOAuthClient
	CredentialTypeServiceAccount
)

func (t CredentialType) String() string {
	switch t {
	case CredentialTypeOAuthClient:
		return "OAuth Client"
	case CredentialTypeServiceAccount:
		return "Service Account"
	default:
		return "Unknown"
	}
}

// DetectCredentialType examines the JSON structure to determine credential type.
func DetectCredentialType(data []byte) (CredentialType, error) {
	var check map[string]interface{}
	if err := json.Unmarshal(data, &check); err != nil {
		return CredentialTypeUnknown, fmt.Errorf("failed to parse credential file: %w", err)
	}

	// Service account has "type": "service_account"
	if typ, ok := check["type"].(string); ok && typ == "service_account" {
		return CredentialTypeServiceAccount, nil
	}

	// OAuth client has "installed" or "web" key
	if _, ok := check["installed"]; ok {
		return CredentialTypeOAuthClient, nil
	}
	if _, ok := check["web"]; ok {
		return CredentialTypeOAuthClient, nil
	}

	return CredentialTypeUnknown, fmt.Errorf("unknown credential type")
}

// NewHTTPClient builds an authenticated HTTP client from the credential file
// at credentialsPath. Service-account keys authenticate directly; OAuth
// client credentials use the token cached at tokenPath, falling back to the
// interactive browser flow when no usable token exists.
//
// The status engine only reads calendars, so the read-only scope is
// requested throughout.
func NewHTTPClient(ctx context.Context, credentialsPath, tokenPath string) (*http.Client, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	credType, err := DetectCredentialType(data)
	if err != nil {
		return nil, err
	}

	switch credType {
	case CredentialTypeServiceAccount:
		jwtConfig, err := google.JWTConfigFromJSON(data, calendar.CalendarReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		// Service accounts don't need token refresh - they generate tokens on demand
		return jwtConfig.Client(ctx), nil

	case CredentialTypeOAuthClient:
		oauthConfig, err := google.ConfigFromJSON(data, calendar.CalendarReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
		}
		return oauthClient(ctx, oauthConfig, tokenPath)

	default:
		return nil, fmt.Errorf("unsupported credential type %s", credType)
	}
}

// oauthClient returns a client backed by the cached token, running the
// browser flow and persisting the result when the cache is missing.
func oauthClient(ctx context.Context, config *oauth2.Config, tokenPath string) (*http.Client, error) {
	tok, err := LoadToken(tokenPath)
	if err == nil {
		return config.Client(ctx, tok), nil
	}

	tok, err = GetTokenFromWeb(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to get token from web: %w", err)
	}

	if err := SaveToken(tokenPath, tok); err != nil {
		return nil, fmt.Errorf("unable to save token: %w", err)
	}

	return config.Client(ctx, tok), nil
}

// LoadToken loads a cached OAuth token from tokenPath.
func LoadToken(tokenPath string) (*oauth2.Token, error) {
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read token file: %w", err)
	}

	tok := &oauth2.Token{}
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, fmt.Errorf("unable to decode token: %w", err)
	}

	return tok, nil
}

// SaveToken persists an OAuth token to tokenPath with restricted permissions.
func SaveToken(tokenPath string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("unable to encode token: %w", err)
	}

	if err := os.WriteFile(tokenPath, data, tokenFilePermMode); err != nil {
		return fmt.Errorf("unable to write token file: %w", err)
	}

	return nil
}

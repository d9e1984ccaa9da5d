package security

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// BigQueryScope is the OAuth2 scope requested for warehouse access.
const BigQueryScope = "https://www.googleapis.com/auth/bigquery"

// GCPAuth resolves Google Cloud credentials for the warehouse clients.
type GCPAuth struct {
	credentials *google.Credentials
}

// NewGCPAuthFromJSON creates a new GCP authenticator from service account JSON
func NewGCPAuthFromJSON(ctx context.Context, credentialsJSON []byte) (*GCPAuth, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, BigQueryScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials JSON: %w", err)
	}
	return &GCPAuth{credentials: creds}, nil
}

// NewGCPAuthFromFile creates a new GCP authenticator from a service account file
func NewGCPAuthFromFile(ctx context.Context, credentialsPath string) (*GCPAuth, error) {
	credentialsJSON, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	return NewGCPAuthFromJSON(ctx, credentialsJSON)
}

// NewGCPAuthFromADC creates a new GCP authenticator using Application Default Credentials
func NewGCPAuthFromADC(ctx context.Context) (*GCPAuth, error) {
	creds, err := google.FindDefaultCredentials(ctx, BigQueryScope)
	if err != nil {
		return nil, fmt.Errorf("failed to find default credentials: %w", err)
	}
	return &GCPAuth{credentials: creds}, nil
}

// NewGCPAuth picks inline JSON first, then a credentials file, then ADC.
func NewGCPAuth(ctx context.Context, credentialsJSON, credentialsFile string) (*GCPAuth, error) {
	switch {
	case credentialsJSON != "":
		return NewGCPAuthFromJSON(ctx, []byte(credentialsJSON))
	case credentialsFile != "":
		return NewGCPAuthFromFile(ctx, credentialsFile)
	default:
		return NewGCPAuthFromADC(ctx)
	}
}

// ClientOptions returns the options shared by every warehouse client.
func (g *GCPAuth) ClientOptions() []option.ClientOption {
	return []option.ClientOption{option.WithCredentials(g.credentials)}
}

package sheets

import (
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"

	"github.com/mamadbah2/farmdiary/internal/config"
)

// ErrInvalidCredentials indicates the service account key is missing,
// malformed or rejected by Google.
var ErrInvalidCredentials = errors.New("invalid service account credentials")

// ServiceAccount mirrors the key file Google Cloud issues for a service account.
type ServiceAccount struct {
	Type                    string `json:"type"`
	ProjectID               string `json:"project_id"`
	PrivateKeyID            string `json:"private_key_id"`
	PrivateKey              string `json:"private_key"`
	ClientEmail             string `json:"client_email"`
	ClientID                string `json:"client_id"`
	AuthURI                 string `json:"auth_uri"`
	TokenURI                string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url"`
}

func (a ServiceAccount) missingFields() []string {
	fields := []struct {
		name  string
		value string
	}{
		{"type", a.Type},
		{"project_id", a.ProjectID},
		{"private_key_id", a.PrivateKeyID},
		{"private_key", a.PrivateKey},
		{"client_email", a.ClientEmail},
		{"client_id", a.ClientID},
		{"auth_uri", a.AuthURI},
		{"token_uri", a.TokenURI},
		{"auth_provider_x509_cert_url", a.AuthProviderX509CertURL},
		{"client_x509_cert_url", a.ClientX509CertURL},
	}

	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// ReadCredentials returns the raw key JSON, preferring the inline value over the file path.
func ReadCredentials(cfg config.SheetsConfig) ([]byte, error) {
	if cfg.CredentialsJSON != "" {
		return []byte(cfg.CredentialsJSON), nil
	}
	if cfg.CredentialsPath == "" {
		return nil, fmt.Errorf("%w: no credentials configured", ErrInvalidCredentials)
	}

	data, err := os.ReadFile(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidCredentials, cfg.CredentialsPath, err)
	}
	return data, nil
}

// ParseServiceAccount validates the key JSON and builds the JWT config used to
// mint access tokens for the given scopes.
func ParseServiceAccount(data []byte, scopes ...string) (*ServiceAccount, *jwt.Config, error) {
	var account ServiceAccount
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, nil, fmt.Errorf("%w: decode key: %v", ErrInvalidCredentials, err)
	}

	if account.Type != "service_account" {
		return nil, nil, fmt.Errorf("%w: type must be service_account, got %q", ErrInvalidCredentials, account.Type)
	}

	if missing := account.missingFields(); len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: missing fields %s", ErrInvalidCredentials, strings.Join(missing, ", "))
	}

	if block, _ := pem.Decode([]byte(account.PrivateKey)); block == nil {
		return nil, nil, fmt.Errorf("%w: private_key is not PEM encoded", ErrInvalidCredentials)
	}

	jwtCfg, err := google.JWTConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	return &account, jwtCfg, nil
}

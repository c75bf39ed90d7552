package sheets

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmdiary/internal/config"
)

func testServiceAccount(t *testing.T) map[string]string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	return map[string]string{
		"type":                        "service_account",
		"project_id":                  "khamar-diary",
		"private_key_id":              "abc123",
		"private_key":                 string(keyPEM),
		"client_email":                "diary@khamar-diary.iam.gserviceaccount.com",
		"client_id":                   "1234567890",
		"auth_uri":                    "https://accounts.google.com/o/oauth2/auth",
		"token_uri":                   "https://oauth2.googleapis.com/token",
		"auth_provider_x509_cert_url": "https://www.googleapis.com/oauth2/v1/certs",
		"client_x509_cert_url":        "https://www.googleapis.com/robot/v1/metadata/x509/diary",
	}
}

func encode(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestParseServiceAccount_Valid(t *testing.T) {
	data := encode(t, testServiceAccount(t))

	account, jwtCfg, err := ParseServiceAccount(data, "scope-a")

	require.NoError(t, err)
	assert.Equal(t, "diary@khamar-diary.iam.gserviceaccount.com", account.ClientEmail)
	assert.Equal(t, "khamar-diary", account.ProjectID)
	assert.Equal(t, account.ClientEmail, jwtCfg.Email)
	assert.Equal(t, []string{"scope-a"}, jwtCfg.Scopes)
}

func TestParseServiceAccount_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m map[string]string)
		want   string
	}{
		{"wrong type", func(m map[string]string) { m["type"] = "authorized_user" }, "type must be service_account"},
		{"missing email", func(m map[string]string) { delete(m, "client_email") }, "client_email"},
		{"missing cert urls", func(m map[string]string) {
			m["auth_provider_x509_cert_url"] = ""
			m["client_x509_cert_url"] = " "
		}, "auth_provider_x509_cert_url, client_x509_cert_url"},
		{"bad key", func(m map[string]string) { m["private_key"] = "not a key" }, "PEM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := testServiceAccount(t)
			tt.mutate(account)

			_, _, err := ParseServiceAccount(encode(t, account))

			require.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseServiceAccount_NotJSON(t *testing.T) {
	_, _, err := ParseServiceAccount([]byte("{"))
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestReadCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"from":"file"}`), 0o600))

	data, err := ReadCredentials(config.SheetsConfig{CredentialsPath: path})
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"file"}`, string(data))

	data, err = ReadCredentials(config.SheetsConfig{CredentialsPath: path, CredentialsJSON: `{"from":"env"}`})
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"env"}`, string(data))

	_, err = ReadCredentials(config.SheetsConfig{CredentialsPath: filepath.Join(t.TempDir(), "missing.json")})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

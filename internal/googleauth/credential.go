// Package googleauth implements service-account authentication against the
// Google OAuth2 token endpoint using the JWT-bearer grant. There is no
// interactive user: the service holds a single machine identity whose key
// material is loaded once at startup.
package googleauth

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceAccountCredential is the parsed service-account key file. It is
// immutable once loaded and owned exclusively by the TokenProvider.
type ServiceAccountCredential struct {
	ClientEmail string
	TokenURI    string
	PrivateKey  *rsa.PrivateKey
}

// serviceAccountKey mirrors the relevant fields of the Google service-account
// key file format.
type serviceAccountKey struct {
	Type        string `json:"type"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`
}

const defaultTokenURI = "https://oauth2.googleapis.com/token"

// ParseCredential parses a service-account key file blob. The private key
// must parse as an RSA PEM (PKCS#8 or PKCS#1) here, at load time — a bad key
// is a startup configuration error, never a per-request failure.
func ParseCredential(blob []byte) (*ServiceAccountCredential, error) {
	var key serviceAccountKey
	if err := json.Unmarshal(blob, &key); err != nil {
		return nil, fmt.Errorf("invalid service account JSON: %w", err)
	}
	if key.ClientEmail == "" {
		return nil, fmt.Errorf("service account key is missing client_email")
	}
	if key.PrivateKey == "" {
		return nil, fmt.Errorf("service account key is missing private_key")
	}

	rsaKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(key.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("invalid service account private key: %w", err)
	}

	tokenURI := key.TokenURI
	if tokenURI == "" {
		tokenURI = defaultTokenURI
	}

	return &ServiceAccountCredential{
		ClientEmail: key.ClientEmail,
		TokenURI:    tokenURI,
		PrivateKey:  rsaKey,
	}, nil
}

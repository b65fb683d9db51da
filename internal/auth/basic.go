// Package auth verifies the static Basic credential pair presented by the webcam.
package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"webcamupload/internal/logging"
)

const basicScheme = "basic"

// Credentials is the single username/password pair accepted for uploads.
type Credentials struct {
	Username string
	Password string
}

// Authenticator checks Authorization header values against fixed Credentials.
// It holds no mutable state and is safe for concurrent use.
type Authenticator struct {
	creds Credentials
	log   *logging.Logger
}

// NewAuthenticator returns an Authenticator for creds. A nil logger discards diagnostics.
func NewAuthenticator(creds Credentials, log *logging.Logger) *Authenticator {
	if log == nil {
		log = logging.Nop()
	}
	return &Authenticator{creds: creds, log: log.With("auth")}
}

// Authenticate reports whether header carries the configured Basic credentials.
// Absent or malformed headers are a normal unauthenticated outcome, not an error.
func (a *Authenticator) Authenticate(header string) bool {
	username, password, ok := parseBasic(header)
	if !ok {
		a.log.Info("authentication_failed", logging.Fields{"reason": "malformed_header"})
		return false
	}

	// Both fields are always compared.
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.creds.Username))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.creds.Password))
	if userOK&passOK != 1 {
		// presented usernames are never logged
		a.log.Info("authentication_failed", logging.Fields{"reason": "invalid_credentials"})
		return false
	}

	a.log.Debug("authentication_succeeded", logging.Fields{"username": username})
	return true
}

// parseBasic extracts the ISO-8859-1 decoded user and password from a Basic header value.
func parseBasic(header string) (username, password string, ok bool) {
	scheme, param, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, basicScheme) {
		return "", "", false
	}
	param = strings.TrimSpace(param)
	if param == "" {
		return "", "", false
	}

	raw, err := base64.StdEncoding.DecodeString(param)
	if err != nil {
		return "", "", false
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", "", false
	}

	return strings.Cut(string(decoded), ":")
}

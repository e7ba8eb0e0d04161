// Package captcha verifies Cloudflare Turnstile challenges and issues the
// short-lived human token that lets a verified browser skip re-solving them.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"greendrake/freight/internal/config"
	"greendrake/freight/internal/utils"
)

const humanTokenIssuer = "freight-captcha"

// Client identifies the browser a challenge or human token belongs to.
type Client struct {
	IP          string
	Fingerprint string
	Session     string
}

type ITurnstileVerifier interface {
	// Verify checks a challenge response with Cloudflare.
	Verify(ctx context.Context, response string, client Client) (bool, error)
	// IssueHumanToken signs a token bound to client.
	IssueHumanToken(client Client, ttl time.Duration) (string, error)
	// ValidateHumanToken reports whether token was issued to client and has not expired.
	ValidateHumanToken(token string, client Client) bool
}

// siteVerifyResponse is the part of the siteverify reply we read.
type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
	Hostname   string   `json:"hostname"`
}

type turnstileVerifier struct {
	secret     string
	verifyURL  string
	signingKey []byte
	httpClient *http.Client
	now        func() time.Time
}

func NewTurnstileVerifier(cfg *config.Config) ITurnstileVerifier {
	return &turnstileVerifier{
		secret:     cfg.CloudflareTurnstileSecretKey,
		verifyURL:  cfg.CloudflareSiteVerifyURL,
		signingKey: []byte(cfg.JwtSecret),
		httpClient: &http.Client{Timeout: 5 * time.Second},
		now:        time.Now,
	}
}

func (v *turnstileVerifier) Verify(ctx context.Context, response string, client Client) (bool, error) {
	if v.secret == "" {
		// local setups run without a Turnstile site
		utils.Warn("Turnstile secret key not configured, skipping verification", nil)
		return true, nil
	}

	form := url.Values{"secret": {v.secret}, "response": {response}}
	if client.IP != "" {
		form.Set("remoteip", client.IP)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to create turnstile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to contact turnstile service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("turnstile verification failed with status %d", resp.StatusCode)
	}

	var out siteVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("failed to parse turnstile response: %w", err)
	}
	if !out.Success {
		utils.Info("Turnstile verification unsuccessful", map[string]any{"error_codes": out.ErrorCodes, "ip": client.IP})
	}
	return out.Success, nil
}

type humanClaims struct {
	IP          string `json:"ip"`
	Fingerprint string `json:"bfp"`
	Session     string `json:"spa"`
	jwt.RegisteredClaims
}

func (v *turnstileVerifier) IssueHumanToken(client Client, ttl time.Duration) (string, error) {
	now := v.now()
	claims := humanClaims{
		IP:          client.IP,
		Fingerprint: client.Fingerprint,
		Session:     client.Session,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    humanTokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign human token: %w", err)
	}
	return signed, nil
}

func (v *turnstileVerifier) ValidateHumanToken(token string, client Client) bool {
	var claims humanClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(humanTokenIssuer),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		utils.Debug("invalid human token", map[string]any{"error": err.Error()})
		return false
	}
	if claims.IP != client.IP || claims.Fingerprint != client.Fingerprint || claims.Session != client.Session {
		utils.Debug("human token presented by a different client", map[string]any{"ip": client.IP})
		return false
	}
	return true
}

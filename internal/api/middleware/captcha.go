package middleware

import (
	"github.com/gin-gonic/gin"

	"greendrake/freight/internal/captcha"
	"greendrake/freight/internal/config"
	"greendrake/freight/internal/utils"
)

const (
	// ContextKeyIsHumanVerified holds the key for captcha status in Gin context.
	ContextKeyIsHumanVerified = "isHumanVerified"

	HeaderCaptchaChallenge = "X-C-V"
	HeaderHumanToken       = "X-C-T"
	HeaderFingerprint      = "X-BFP"
	HeaderSPASession       = "X-SPA"
)

func captchaClient(c *gin.Context) captcha.Client {
	return captcha.Client{
		IP:          c.ClientIP(),
		Fingerprint: c.GetHeader(HeaderFingerprint),
		Session:     c.GetHeader(HeaderSPASession),
	}
}

// CaptchaMiddleware marks the request as human when it carries a valid X-C-T
// token or a Turnstile response (X-C-V) that verifies; in the latter case a
// fresh X-C-T is returned. It never rejects: the rate limiter decides what an
// unverified client may do.
func CaptchaMiddleware(cfg *config.Config, verifier captcha.ITurnstileVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := captchaClient(c)
		humanToken := c.GetHeader(HeaderHumanToken)
		challenge := c.GetHeader(HeaderCaptchaChallenge)

		isHuman := humanToken != "" && verifier.ValidateHumanToken(humanToken, client)

		if !isHuman && challenge != "" {
			verified, err := verifier.Verify(c.Request.Context(), challenge, client)
			switch {
			case err != nil:
				utils.Warn("turnstile verification error", map[string]any{"error": err.Error(), "ip": client.IP})
			case verified:
				isHuman = true
				if token, err := verifier.IssueHumanToken(client, cfg.CaptchaTokenTTL); err != nil {
					utils.Error("failed to issue X-C-T token", map[string]any{"error": err.Error()})
				} else {
					c.Header(HeaderHumanToken, token)
				}
			}
		}

		c.Set(ContextKeyIsHumanVerified, isHuman)
		c.Next()
	}
}

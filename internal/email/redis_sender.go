package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"greendrake/freight/internal/config"
	"greendrake/freight/internal/utils"
)

// MockEmailTTL is how long a mock email stays readable in Redis.
const MockEmailTTL = 5 * time.Minute

// MockEmail is what RedisSender stores for each message.
type MockEmail struct {
	To         string `json:"to"`
	From       string `json:"from"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	TemplateID string `json:"templateId"`
	SentAt     string `json:"sentAt"`
}

// MockEmailKey is the Redis key of the latest mock email of a template sent to an address.
func MockEmailKey(to, templateID string) string {
	return fmt.Sprintf("mockemail:%s:%s", strings.ToLower(to), templateID)
}

// RedisSender stores emails in Redis instead of sending them, so tests can read them back.
type RedisSender struct {
	client redis.Cmdable
	cfg    *config.Config
}

func NewRedisSender(client redis.Cmdable, cfg *config.Config) *RedisSender {
	return &RedisSender{client: client, cfg: cfg}
}

func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	templateID, body := "unknown", string(rawMessage)
	if msg, err := mail.ReadMessage(bytes.NewReader(rawMessage)); err == nil {
		if id := msg.Header.Get(HeaderTemplateID); id != "" {
			templateID = id
		}
		if b, err := io.ReadAll(msg.Body); err == nil {
			body = string(b)
		}
	}

	for _, recipient := range to {
		data, err := json.Marshal(MockEmail{
			To:         recipient,
			From:       s.cfg.SmtpFromAddress,
			Subject:    subject,
			Body:       body,
			TemplateID: templateID,
			SentAt:     time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return fmt.Errorf("failed to marshal email data: %w", err)
		}
		key := MockEmailKey(recipient, templateID)
		if err := s.client.Set(ctx, key, data, MockEmailTTL).Err(); err != nil {
			return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
		}
		utils.Info("mock email stored in Redis", map[string]any{"key": key, "subject": subject})
	}
	return nil
}

// ReadMockEmail loads a stored mock email. It returns nil, nil when none exists.
func ReadMockEmail(ctx context.Context, client redis.Cmdable, to, templateID string) (*MockEmail, error) {
	data, err := client.Get(ctx, MockEmailKey(to, templateID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read mock email: %w", err)
	}
	var m MockEmail
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode mock email: %w", err)
	}
	return &m, nil
}

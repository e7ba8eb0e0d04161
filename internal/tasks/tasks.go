package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"greendrake/freight/internal/config"
	"greendrake/freight/internal/email"
	"greendrake/freight/internal/models"
	"greendrake/freight/internal/utils"
)

// TaskType defines the type of a background task.
const (
	TypeEmailDelivery = "email:deliver"
)

// DefaultLocale is used when a payload carries no locale.
const DefaultLocale = "en-US"

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

// EmailEnqueuer queues templated emails for the background worker.
type EmailEnqueuer struct {
	client *asynq.Client
	locale string
}

func NewEmailEnqueuer(client *asynq.Client) *EmailEnqueuer {
	return &EmailEnqueuer{client: client, locale: DefaultLocale}
}

// Send enqueues an email:deliver task. It returns once the task is stored, not when mail is sent.
func (e *EmailEnqueuer) Send(ctx context.Context, to, templateID string, data map[string]any) error {
	payload, err := json.Marshal(EmailTaskPayload{
		To:         to,
		TemplateID: templateID,
		Locale:     e.locale,
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email task payload: %w", err)
	}
	info, err := e.client.EnqueueContext(ctx, asynq.NewTask(TypeEmailDelivery, payload),
		asynq.Queue("critical"), asynq.MaxRetry(5), asynq.Timeout(time.Minute))
	if err != nil {
		return fmt.Errorf("failed to enqueue %s email: %w", templateID, err)
	}
	utils.Debug("email task enqueued", map[string]any{"task_id": info.ID, "template_id": templateID})
	return nil
}

// --- Task Server (Processing tasks) ---

// TemplateSource resolves an email template by id and locale.
type TemplateSource interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
}

// TaskProcessor handles the processing of tasks.
type TaskProcessor struct {
	cfg         *config.Config
	emailSender email.Sender
	templates   TemplateSource
	now         func() time.Time
}

func NewTaskProcessor(cfg *config.Config, emailSender email.Sender, templates TemplateSource) *TaskProcessor {
	return &TaskProcessor{
		cfg:         cfg,
		emailSender: emailSender,
		templates:   templates,
		now:         time.Now,
	}
}

// SetupServer configures the Asynq server and its handler mux. The caller runs and stops it.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				utils.Error("task failed", map[string]any{"type": task.Type(), "error": err.Error()})
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
	utils.Info("registered background task handlers", map[string]any{"types": []string{TypeEmailDelivery}})
	return srv, mux
}

// --- Task Handlers ---

// EmailTaskPayload is the body of an email:deliver task.
type EmailTaskPayload struct {
	To         string         `json:"to"`
	TemplateID string         `json:"template_id"`
	Locale     string         `json:"locale,omitempty"`
	Data       map[string]any `json:"data"`
}

// HandleEmailDeliveryTask renders the template and hands the message to the sender.
// Bad payloads and unknown or broken templates are not retried.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" || payload.TemplateID == "" {
		return fmt.Errorf("email task payload missing recipient or template: %w", asynq.SkipRetry)
	}

	locale := payload.Locale
	if locale == "" {
		locale = DefaultLocale
	}

	tmpl, err := p.templates.GetTemplate(ctx, payload.TemplateID, locale)
	if err != nil {
		utils.Error("email template lookup failed", map[string]any{
			"template_id": payload.TemplateID, "locale": locale, "error": err.Error(),
		})
		return fmt.Errorf("email template %s/%s not found: %w", payload.TemplateID, locale, asynq.SkipRetry)
	}

	subject, body, err := renderTemplate(tmpl, payload.Data)
	if err != nil {
		return fmt.Errorf("failed to render email template %s: %v: %w", payload.TemplateID, err, asynq.SkipRetry)
	}

	from := p.cfg.SmtpFromAddress
	if from == "" {
		from = "noreply@example.com"
		utils.Warn("SmtpFromAddress not configured, using fallback", map[string]any{"from": from})
	}
	raw := buildMessage(from, payload.To, subject, payload.TemplateID, body, p.now())

	if err := p.emailSender.Send(ctx, []string{payload.To}, subject, raw); err != nil {
		utils.Warn("email sending failed", map[string]any{"template_id": payload.TemplateID, "error": err.Error()})
		return err
	}

	utils.Info("email task processed", map[string]any{"template_id": payload.TemplateID})
	return nil
}

func renderTemplate(tmpl *models.EmailTemplate, data map[string]any) (string, string, error) {
	subjectTmpl, err := texttemplate.New("subject").Option("missingkey=zero").Parse(tmpl.Subject)
	if err != nil {
		return "", "", fmt.Errorf("subject: %w", err)
	}
	var subject bytes.Buffer
	if err := subjectTmpl.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("subject: %w", err)
	}

	bodyTmpl, err := htmltemplate.New("body").Option("missingkey=zero").Parse(tmpl.Body)
	if err != nil {
		return "", "", fmt.Errorf("body: %w", err)
	}
	var body bytes.Buffer
	if err := bodyTmpl.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("body: %w", err)
	}

	// Header injection guard: a subject is a single line.
	s := strings.Join(strings.Fields(subject.String()), " ")
	return s, body.String(), nil
}

func buildMessage(from, to, subject, templateID, body string, at time.Time) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	fmt.Fprintf(&sb, "Date: %s\r\n", at.Format(time.RFC1123Z))
	fmt.Fprintf(&sb, "%s: %s\r\n", email.HeaderTemplateID, templateID)
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")
	return []byte(sb.String())
}

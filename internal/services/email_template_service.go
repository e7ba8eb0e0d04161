package services

import (
	"context"
	"errors"
	"fmt"

	"greendrake/freight/internal/auctionerrors"
	"greendrake/freight/internal/models"
	"greendrake/freight/internal/repository"
)

const DefaultLocale = "en-US"

const emailFooter = `
<div class="footer" style="margin-top:40px;padding-top:20px;border-top:1px solid #eaeaea;font-size:12px;color:#666666;text-align:center;">
  <p>&copy; {{.currentYear}} {{.companyName}}. All rights reserved.</p>
  <p>{{.companyAddressLine1}}<br>{{.companyAddressLine2}}</p>
  <p>
    <a href="{{.privacyPolicyUrl}}">Privacy Policy</a> |
    <a href="{{.termsUrl}}">Terms of Service</a> |
    <a href="{{.unsubscribeUrl}}">Unsubscribe</a> |
    <a href="{{.preferencesUrl}}">Email Preferences</a>
  </p>
</div>`

const codeBlock = `<div style="font-family:monospace;font-size:24px;letter-spacing:2px;background-color:#f5f5f5;padding:10px 20px;border-radius:4px;margin:20px 0;display:inline-block;">{{.verificationCode}}</div>`

// Built-in templates, used when the email_templates collection has no override.
var defaultEmailTemplates = map[string]models.EmailTemplate{
	models.TemplateVerifyEmail: {
		TemplateID: models.TemplateVerifyEmail,
		Locale:     DefaultLocale,
		Subject:    "Verify your email address",
		Body: `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Verify your email address</title></head>
<body style="font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;line-height:1.6;color:#333333;max-width:600px;margin:0 auto;padding:20px;">
<div style="padding:0 20px;">
  <h2>Welcome, {{.userFullName}}!</h2>
  <p>Thanks for signing up. Enter the code below to verify your email address:</p>
  ` + codeBlock + `
  <p style="color:#666666;font-size:14px;font-style:italic;">This code will expire in 15 minutes.</p>
  <p>If you did not create an account, you can safely ignore this email.</p>
</div>` + emailFooter + `
</body>
</html>`,
	},
	models.TemplatePasswordReset: {
		TemplateID: models.TemplatePasswordReset,
		Locale:     DefaultLocale,
		Subject:    "Reset your password",
		Body: `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Password Reset Request</title></head>
<body style="font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;line-height:1.6;color:#333333;max-width:600px;margin:0 auto;padding:20px;">
<div style="padding:0 20px;">
  <h2>Hello {{.userFullName}},</h2>
  <p>We received a request to reset your password. Use this verification code to continue:</p>
  ` + codeBlock + `
  <p style="color:#666666;font-size:14px;font-style:italic;">This code will expire in 15 minutes.</p>
  <p>If you did not request a password reset, please ignore this email or contact support.</p>
</div>` + emailFooter + `
</body>
</html>`,
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
	SaveTemplate(ctx context.Context, template *models.EmailTemplate) error
	DeleteTemplate(ctx context.Context, templateID, locale string) error
}

// EmailTemplateService resolves templates from the database, falling back to the built-in defaults.
type EmailTemplateService struct {
	templates repository.EmailTemplateRepository
}

func NewEmailTemplateService(templates repository.EmailTemplateRepository) *EmailTemplateService {
	return &EmailTemplateService{templates: templates}
}

// GetTemplate retrieves an email template by ID and locale
func (s *EmailTemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	if locale == "" {
		locale = DefaultLocale
	}
	tpl, err := s.templates.Find(ctx, templateID, locale)
	if err == nil {
		return tpl, nil
	}
	if !errors.Is(err, auctionerrors.ErrNotFound) {
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}
	if def, ok := defaultEmailTemplates[templateID]; ok {
		return &def, nil
	}
	return nil, auctionerrors.NewNotFound(fmt.Sprintf("email template %s (locale %s)", templateID, locale), 0)
}

func (s *EmailTemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	if template.Locale == "" {
		template.Locale = DefaultLocale
	}
	return s.templates.Save(ctx, template)
}

func (s *EmailTemplateService) DeleteTemplate(ctx context.Context, templateID, locale string) error {
	return s.templates.Delete(ctx, templateID, locale)
}

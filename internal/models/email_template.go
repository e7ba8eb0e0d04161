package models

// EmailTemplate defines the structure for email templates stored in the DB.
// Subject is a text/template, Body an html/template.
type EmailTemplate struct {
	TemplateID string `bson:"template_id" json:"templateId"` // e.g., "verify_email", "password_reset"
	Locale     string `bson:"locale" json:"locale"`          // e.g., "en-US"
	Subject    string `bson:"subject" json:"subject"`
	Body       string `bson:"body" json:"body"`
}

const (
	TemplateVerifyEmail   = "verify_email"
	TemplatePasswordReset = "password_reset"
)

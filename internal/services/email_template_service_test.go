package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greendrake/freight/internal/auctionerrors"
	"greendrake/freight/internal/models"
)

func TestEmailTemplateService(t *testing.T) {
	mem := newMemDB()
	svc := NewEmailTemplateService(memTemplates{mem})
	ctx := context.Background()

	tpl, err := svc.GetTemplate(ctx, models.TemplateVerifyEmail, "")
	require.NoError(t, err)
	assert.Equal(t, "Verify your email address", tpl.Subject)
	assert.Contains(t, tpl.Body, "{{.verificationCode}}")
	assert.Contains(t, tpl.Body, "{{.companyName}}")

	override := &models.EmailTemplate{TemplateID: models.TemplatePasswordReset, Subject: "Custom reset", Body: "<p>{{.verificationCode}}</p>"}
	require.NoError(t, svc.SaveTemplate(ctx, override))
	tpl, err = svc.GetTemplate(ctx, models.TemplatePasswordReset, DefaultLocale)
	require.NoError(t, err)
	assert.Equal(t, "Custom reset", tpl.Subject)

	require.NoError(t, svc.DeleteTemplate(ctx, models.TemplatePasswordReset, DefaultLocale))
	tpl, err = svc.GetTemplate(ctx, models.TemplatePasswordReset, DefaultLocale)
	require.NoError(t, err)
	assert.Equal(t, "Reset your password", tpl.Subject)

	_, err = svc.GetTemplate(ctx, "no_such_template", DefaultLocale)
	assert.True(t, errors.Is(err, auctionerrors.ErrNotFound))
}

package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"greendrake/freight/internal/auctionerrors"
	"greendrake/freight/internal/models"
)

type mongoEmailTemplateRepository struct {
	db *mongo.Database
}

func templateFilter(templateID, locale string) bson.M {
	return bson.M{"template_id": templateID, "locale": locale}
}

func (r *mongoEmailTemplateRepository) Find(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	var tpl models.EmailTemplate
	err := r.db.Collection(emailTemplatesCollection).FindOne(ctx, templateFilter(templateID, locale)).Decode(&tpl)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, auctionerrors.NewNotFound("email template "+templateID, 0)
	}
	if err != nil {
		return nil, auctionerrors.NewPersistence("find email template", err)
	}
	return &tpl, nil
}

func (r *mongoEmailTemplateRepository) Save(ctx context.Context, tpl *models.EmailTemplate) error {
	_, err := r.db.Collection(emailTemplatesCollection).UpdateOne(ctx,
		templateFilter(tpl.TemplateID, tpl.Locale),
		bson.M{"$set": tpl},
		options.Update().SetUpsert(true))
	return auctionerrors.NewPersistence("save email template", err)
}

func (r *mongoEmailTemplateRepository) Delete(ctx context.Context, templateID, locale string) error {
	_, err := r.db.Collection(emailTemplatesCollection).DeleteOne(ctx, templateFilter(templateID, locale))
	return auctionerrors.NewPersistence("delete email template", err)
}

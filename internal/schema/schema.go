// Package schema decodes request bodies strictly and validates them with
// struct tags, reporting failures as auctionerrors.ValidationError.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"greendrake/freight/internal/auctionerrors"
	"greendrake/freight/internal/auth"
)

// MessageInvalidRequest is the top-level message for any schema failure.
const MessageInvalidRequest = "Invalid request data"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("password_policy", func(fl validator.FieldLevel) bool {
		return auth.MeetsPolicy(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		_, err := ParsePhone(fl.Field().String())
		return err == nil
	})
	return v
}

// ParsePhone parses a phone number given as a string of decimal digits.
func ParsePhone(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("phone is empty")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errors.New("phone must be numeric")
		}
	}
	return strconv.ParseInt(s, 10, 64)
}

// Decode reads exactly one JSON object from r into dst, rejecting unknown
// fields and trailing data, then validates dst.
func Decode(r io.Reader, dst any) error {
	if err := DecodeStrict(r, dst); err != nil {
		return err
	}
	return Validate(dst)
}

// DecodeStrict is Decode without struct validation, for bodies that are
// normalized before they are validated.
func DecodeStrict(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if dec.More() {
		return auctionerrors.NewValidationError(MessageInvalidRequest,
			auctionerrors.FieldError{Field: "body", Message: "unexpected data after JSON object", Code: "trailing_data"})
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return auctionerrors.NewValidationError(MessageInvalidRequest,
			auctionerrors.FieldError{Field: "body", Message: "unexpected data after JSON object", Code: "trailing_data"})
	}
	return nil
}

// DecodeBytes is Decode over an in-memory body.
func DecodeBytes(body []byte, dst any) error {
	return Decode(bytes.NewReader(body), dst)
}

// Validate runs struct-tag validation on v.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("schema validation: %w", err)
	}
	fields := make([]auctionerrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, auctionerrors.FieldError{
			Field:   fieldPath(fe),
			Message: describe(fe),
			Code:    fe.Tag(),
		})
	}
	return auctionerrors.NewValidationError(MessageInvalidRequest, fields...)
}

// fieldPath drops the top-level struct name from the namespace, leaving
// paths like "participantIds[2]".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "len":
		return "must have length " + fe.Param()
	case "numeric", "number":
		return "must be numeric"
	case "phone":
		return "Phone number must be numeric"
	case "password_policy":
		return auth.PasswordPolicyMessage
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return auctionerrors.NewValidationError(MessageInvalidRequest, auctionerrors.FieldError{
			Field:   field,
			Message: fmt.Sprintf("expected %s, got %s", typeErr.Type.String(), typeErr.Value),
			Code:    "invalid_type",
		})
	case errors.As(err, &syntaxErr):
		return auctionerrors.NewValidationError(MessageInvalidRequest, auctionerrors.FieldError{
			Field:   "body",
			Message: fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset),
			Code:    "invalid_json",
		})
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return auctionerrors.NewValidationError(MessageInvalidRequest, auctionerrors.FieldError{
			Field:   "body",
			Message: "request body is empty or truncated",
			Code:    "invalid_json",
		})
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		name := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return auctionerrors.NewValidationError(MessageInvalidRequest, auctionerrors.FieldError{
			Field:   name,
			Message: "unknown field",
			Code:    "unrecognized_keys",
		})
	default:
		return auctionerrors.NewValidationError(MessageInvalidRequest, auctionerrors.FieldError{
			Field:   "body",
			Message: err.Error(),
			Code:    "invalid_json",
		})
	}
}

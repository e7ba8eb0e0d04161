package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"greendrake/freight/internal/api/middleware"
	"greendrake/freight/internal/auctionerrors"
	"greendrake/freight/internal/utils"
)

const (
	MsgInternalError    = "Internal server error"
	MsgNotEligible      = "One or more participants are inactive or have no active request"
	MsgUnauthenticated  = "Authentication required"
	MsgInvalidIDPrefix  = "Invalid "
	participantResource = "participant"
	auctionResource     = "auction"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// EligibilityDetails lists which participants blocked an assignment.
type EligibilityDetails struct {
	Requested []int64 `json:"requested"`
	Found     []int64 `json:"found"`
	Missing   []int64 `json:"missing"`
}

// MapErrorToHTTP translates a service error into a status code and response body.
func MapErrorToHTTP(err error) (int, ErrorResponse) {
	var (
		verr  *auctionerrors.ValidationError
		nferr *auctionerrors.NotFoundError
		perr  *auctionerrors.PartialEligibilityError
		aerr  *auctionerrors.AuthError
		pserr *auctionerrors.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		resp := ErrorResponse{Error: verr.Message}
		if len(verr.Fields) > 0 {
			resp.Details = verr.Fields
		}
		return http.StatusBadRequest, resp
	case errors.As(err, &perr):
		return http.StatusBadRequest, ErrorResponse{
			Error: MsgNotEligible,
			Details: EligibilityDetails{
				Requested: nonNil(perr.Requested),
				Found:     nonNil(perr.Found),
				Missing:   nonNil(perr.Missing),
			},
		}
	case errors.As(err, &nferr):
		return http.StatusNotFound, ErrorResponse{Error: capitalize(nferr.Resource) + " not found"}
	case errors.As(err, &aerr):
		return http.StatusUnauthorized, ErrorResponse{Error: aerr.Reason}
	case errors.As(err, &pserr):
		return http.StatusInternalServerError, ErrorResponse{Error: capitalize(pserr.Op) + " failed"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: MsgInternalError}
	}
}

// respondError writes the mapped error and records server-side failures.
func respondError(c *gin.Context, err error) {
	status, body := MapErrorToHTTP(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		utils.Error("request failed", map[string]any{"path": c.FullPath(), "error": err.Error()})
	}
	c.AbortWithStatusJSON(status, body)
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name, resource string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, auctionerrors.NewValidationError(MsgInvalidIDPrefix+resource+" ID",
			auctionerrors.FieldError{Field: name, Message: "must be a positive integer", Code: "invalid_id"}))
		return 0, false
	}
	return id, true
}

// sessionUser returns the authenticated user or writes a 401.
func sessionUser(c *gin.Context) (int64, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		respondError(c, &auctionerrors.AuthError{Reason: MsgUnauthenticated})
	}
	return id, ok
}

func noCache(c *gin.Context) {
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationError is one field-level problem in a request body.
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// BindError carries every field-level problem found in a request body,
// so a client can fix the whole request in one round trip.
type BindError struct {
	Fields []ValidationError
}

func (e *BindError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid request body"
	}
	return e.Fields[0].Message
}

// BindStrict decodes a JSON body into dst, rejecting unknown fields, and
// runs struct validation. Requests are fully validated before any store
// access; a strict decoder keeps misspelled fields from silently becoming
// zero values. Validation failures come back as a *BindError listing
// every offending field.
func BindStrict(c *gin.Context, dst interface{}) error {
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}

	if fields := ValidateStruct(dst); len(fields) > 0 {
		return &BindError{Fields: fields}
	}

	return nil
}

// ValidateStruct validates a struct and returns formatted errors.
func ValidateStruct(s interface{}) []ValidationError {
	var out []ValidationError

	err := validate.Struct(s)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				out = append(out, ValidationError{
					Field:   fe.Field(),
					Tag:     fe.Tag(),
					Message: errorMessage(fe),
				})
			}
		}
	}

	return out
}

func errorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		return err.Field() + " must have at least " + err.Param() + " entries"
	case "max":
		return err.Field() + " must have at most " + err.Param() + " entries"
	case "gte":
		return err.Field() + " must be greater than or equal to " + err.Param()
	case "lte":
		return err.Field() + " must be less than or equal to " + err.Param()
	default:
		return err.Field() + " is invalid"
	}
}

// IsTimeout reports whether err means the request-level deadline elapsed
// while waiting on storage or another collaborator.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, http.ErrHandlerTimeout)
}

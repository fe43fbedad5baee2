package models

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ScrapeRequest is a job submission
type ScrapeRequest struct {
	ListURL  string `json:"listUrl" validate:"required,url"`
	MaxItems int    `json:"maxItems" validate:"omitempty,min=1,max=10000"`
}

var requestValidator = validator.New()

// Normalize trims the URL and fills in the default cap when none was given
func (r *ScrapeRequest) Normalize(defaultMaxItems int) {
	r.ListURL = strings.TrimSpace(r.ListURL)
	if r.MaxItems == 0 {
		r.MaxItems = defaultMaxItems
	}
}

// Validate checks the request with go-playground/validator struct tags
func (r *ScrapeRequest) Validate() error {
	return requestValidator.Struct(r)
}

// ValidationMessage turns a Validate error into a client-facing message
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	switch fe := verrs[0]; {
	case fe.Field() == "ListURL" && fe.Tag() == "required":
		return "List URL is required"
	case fe.Field() == "ListURL":
		return "List URL must be an absolute URL"
	case fe.Field() == "MaxItems":
		return "maxItems must be between 1 and 10000"
	default:
		return fe.Error()
	}
}

// Package endpoint holds the monitored endpoint model and its validation rules.
package endpoint

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Endpoint is a monitored remote target identified by its display name.
type Endpoint struct {
	Name          string `json:"name" validate:"required,max=64"`
	Location      string `json:"location" validate:"required,httploc"`
	Enabled       bool   `json:"enabled"`
	ResponseMatch string `json:"response_match,omitempty" validate:"max=1000"`
	StatusCodes   string `json:"status_codes,omitempty" validate:"omitempty,statuscodes"`
}

var (
	locationRe    = regexp.MustCompile(`^https?://[^\s/?#]+`)
	statusCodesRe = regexp.MustCompile(`^([0-9]{3},\s?)*[0-9]{3}$`)

	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("httploc", func(fl validator.FieldLevel) bool {
			return locationRe.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("statuscodes", func(fl validator.FieldLevel) bool {
			return statusCodesRe.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Validate checks a single endpoint and returns a readable error.
func (e Endpoint) Validate() error {
	err := validatorInstance().Struct(e)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fieldError(e.Name, fe))
	}
	return errors.Join(errs...)
}

func fieldError(name string, fe validator.FieldError) error {
	label := name
	if strings.TrimSpace(label) == "" {
		label = "<unnamed>"
	}
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("endpoint %q: %s is required", label, field)
	case "max":
		return fmt.Errorf("endpoint %q: %s must be at most %s characters", label, field, fe.Param())
	case "httploc":
		return fmt.Errorf("endpoint %q: location must be an http:// or https:// URL", label)
	case "statuscodes":
		return fmt.Errorf("endpoint %q: status_codes must be a comma-separated list of 3-digit codes", label)
	default:
		return fmt.Errorf("endpoint %q: %s failed %s", label, field, fe.Tag())
	}
}

// ValidateAll validates every endpoint and rejects duplicate names.
func ValidateAll(eps []Endpoint) error {
	var errs []error
	seen := make(map[string]struct{}, len(eps))
	for _, ep := range eps {
		if err := ep.Validate(); err != nil {
			errs = append(errs, err)
		}
		key := strings.TrimSpace(ep.Name)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("endpoint %q: duplicate name", key))
			continue
		}
		seen[key] = struct{}{}
	}
	return errors.Join(errs...)
}

// StatusCodeList parses StatusCodes. Nil means any 2xx is accepted.
func (e Endpoint) StatusCodeList() []int {
	raw := strings.TrimSpace(e.StatusCodes)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// AcceptsStatus reports whether code counts as a successful response.
func (e Endpoint) AcceptsStatus(code int) bool {
	list := e.StatusCodeList()
	if list == nil {
		return code >= 200 && code < 300
	}
	for _, c := range list {
		if c == code {
			return true
		}
	}
	return false
}

// SameCheck reports whether both endpoints would be checked the same way.
func (e Endpoint) SameCheck(o Endpoint) bool {
	return e.Location == o.Location &&
		e.ResponseMatch == o.ResponseMatch &&
		normalizeCodes(e.StatusCodes) == normalizeCodes(o.StatusCodes)
}

func normalizeCodes(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, ",", " ")), ",")
}

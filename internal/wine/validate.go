package wine

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// DateLayout is the on-disk format of consumedDate.
const DateLayout = "2006-01-02"

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is returned by Validate when a record is rejected.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "invalid wine: " + strings.Join(parts, "; ")
}

// Validate checks a record before it is written. It does not enforce the
// status/consumedDate correlation; callers decide whether that matters.
func (w Wine) Validate() error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(w.Name) == "" {
		add("name", "is required")
	}
	if !w.Status.Valid() {
		add("status", "must be one of in_cellar, consumed, sold, gifted")
	}
	if w.Quantity < 1 {
		add("quantity", "must be a positive integer")
	}
	if w.Vintage != 0 && (w.Vintage < 1800 || w.Vintage > 2100) {
		add("vintage", "must be between 1800 and 2100, got %d", w.Vintage)
	}
	if w.PeakYear != 0 && (w.PeakYear < 1800 || w.PeakYear > 2200) {
		add("peakYear", "must be between 1800 and 2200, got %d", w.PeakYear)
	}
	if w.Price != nil && *w.Price < 0 {
		add("price", "must not be negative")
	}
	if w.Rating != nil && (*w.Rating < 0 || *w.Rating > 100) {
		add("rating", "must be between 0 and 100")
	}
	if w.ConsumedDate != nil && *w.ConsumedDate != "" {
		if _, err := time.Parse(DateLayout, *w.ConsumedDate); err != nil {
			add("consumedDate", "must be a YYYY-MM-DD date")
		}
	}
	if w.BottleImage != "" && !isHTTPURL(w.BottleImage) {
		add("bottle_image", "must be an absolute http(s) URL")
	}
	if w.TechnicalSheet != "" && !isHTTPURL(w.TechnicalSheet) {
		add("technical_sheet", "must be an absolute http(s) URL")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

/*
Package req provides helper functions for HTTP request parsing and data binding.

It decodes JSON bodies strictly, enforces a body size limit, and validates the bound
struct against its `validate` tags before any business logic sees it.
*/
package req

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"anonchat/internal/pkg/errs"
)

// MaxJSONBodySize bounds the size of a JSON request body (64 KB).
const MaxJSONBodySize int64 = 64 << 10

var validate = validator.New(validator.WithRequiredStructEnabled())

// BindJSON attempts to bind the JSON data from the HTTP request body to the destination struct dst
// and validates it. A nil error means dst is ready to use.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return Validate(dst)
}

// Validate checks v against its struct tags.
func Validate(v any) *errs.CustomError {
	if err := validate.Struct(v); err != nil {
		return errs.NewError(errs.ErrInvalidParams)
	}
	return nil
}

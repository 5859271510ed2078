package webutil

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/samerrd/language-reminder-server/internal/model"
)

// DecodeJSONBody decodes the request body into dst, rejecting unknown
// fields. Decode failures (including enum values the DTO refuses) surface as
// model.ErrInvalidInput.
func DecodeJSONBody(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return model.ErrInvalidInput
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	return nil
}

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"expensetracker/internal/auth"
	"expensetracker/internal/core"
)

const maxBodyBytes = 1 << 20

var errBadJSON = errors.New("invalid JSON body")

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// statusFor maps domain and auth errors onto HTTP status codes.
func statusFor(err error) int {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadJSON):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrStoreBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	var ve *core.ValidationError
	var dup *core.DuplicateKeyError
	switch {
	case errors.As(err, &ve):
		resp = errorResponse{Error: ve.Error(), Field: ve.Field}
	case errors.As(err, &dup):
		resp.Error = dup.Error()
	case status == http.StatusNotFound:
		resp.Error = "not found"
	case status == http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", "1")
		resp.Error = "store busy, retry later"
	case status == http.StatusUnauthorized:
		resp.Error = "unauthorized"
	case status == http.StatusInternalServerError:
		slog.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		resp.Error = "internal error"
	}

	if status >= 400 && status < 500 {
		slog.DebugContext(r.Context(), "Request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadJSON)
		}
		return fmt.Errorf("%w: %v", errBadJSON, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", errBadJSON)
	}
	return nil
}

// amountField accepts an amount as a JSON number or string.
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*a = amountField(str)
		return nil
	}
	if s == "null" {
		*a = ""
		return nil
	}
	*a = amountField(s)
	return nil
}

func (a amountField) expenseCents() (core.Money, error) {
	cents, err := core.ParseDecimalToCents(string(a))
	return core.Money{Cents: cents}, err
}

func (a amountField) budgetCents() (core.Money, error) {
	cents, err := core.ParseBudgetToCents(string(a))
	return core.Money{Cents: cents}, err
}

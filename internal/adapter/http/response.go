package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

const maxRequestBodySize = 1 << 20

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Error     string   `json:"error"`
	Detail    string   `json:"detail,omitempty"`
	Field     string   `json:"field,omitempty"`
	Fields    []string `json:"fields,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// decodeError marks a body that could not be decoded into the request type.
// Schema is set when the JSON was well formed but a value had the wrong type.
type decodeError struct {
	msg    string
	field  string
	schema bool
	err    error
}

func (e *decodeError) Error() string { return e.msg }
func (e *decodeError) Unwrap() error { return e.err }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg, detail, field string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Detail:    detail,
		Field:     field,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// decodeJSON reads a single JSON object from the body, rejecting unknown
// fields and bodies over 1 MB.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return mapDecodeError(err)
	}
	if dec.More() {
		return &decodeError{msg: "request body must contain a single JSON object"}
	}
	return nil
}

func mapDecodeError(err error) *decodeError {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return &decodeError{msg: "request body must not exceed 1MB", err: err}
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &decodeError{msg: "malformed JSON in request body", err: err}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &decodeError{
			msg:    fmt.Sprintf("%s must be of type %s", typeErr.Field, typeErr.Type),
			field:  typeErr.Field,
			schema: true,
			err:    err,
		}
	}
	if strings.HasPrefix(err.Error(), "json: unknown field") {
		return &decodeError{msg: "unknown field in request body: " + strings.TrimPrefix(err.Error(), "json: unknown field "), err: err}
	}
	if errors.Is(err, io.EOF) {
		return &decodeError{msg: "request body must not be empty", err: err}
	}
	return &decodeError{msg: "malformed JSON in request body", err: err}
}

// writeDecodeError answers 422 for well-formed JSON with a mistyped value and
// 400 for everything else.
func writeDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *decodeError
	if errors.As(err, &de) && de.schema {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid request", de.msg, de.field)
		return
	}
	writeError(w, r, http.StatusBadRequest, "invalid request body", err.Error(), "")
}

// newValidator reports field errors by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, r, http.StatusUnprocessableEntity, "invalid request", err.Error(), "")
		return
	}
	fields := make([]string, 0, len(verrs))
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
		details = append(details, describe(fe))
	}
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
		Error:     "invalid request",
		Detail:    strings.Join(details, "; "),
		Field:     fields[0],
		Fields:    fields,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min", "max":
		if fe.Field() == "day_of_week" {
			return "day_of_week must be between 1 and 7"
		}
		return fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/erazemk/trgovina/internal/store"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.L().Warn("encoding response", zap.Error(err))
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorResponse{Error: message})
}

// jsonList writes a list, never as null.
func jsonList[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// storeError maps store errors to HTTP responses. Domain errors carry
// messages meant for users; anything else is logged and hidden.
func storeError(w http.ResponseWriter, log *zap.Logger, err error, what string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, store.ErrShiftAlreadyOpen),
		errors.Is(err, store.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, store.ErrPlanLimit):
		status = http.StatusForbidden
	case errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrInsufficientPayment),
		errors.Is(err, store.ErrNoOpenShift),
		errors.Is(err, store.ErrInvalid):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		log.Error(what, zap.Error(err))
		jsonError(w, status, "failed to "+what)
		return
	}
	jsonError(w, status, err.Error())
}

// notFound writes a 404 for a missing record.
func notFound(w http.ResponseWriter, what string) {
	jsonError(w, http.StatusNotFound, what+" not found")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON decodes a JSON request body into target and validates it.
// On failure it writes the 400 response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return validBody(w, target)
}

// validBody runs the struct validation tags of target.
func validBody(w http.ResponseWriter, target any) bool {
	err := validate.Struct(target)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return false
	}

	fields := map[string][]string{}
	for _, fe := range verrs {
		name := fieldName(fe)
		fields[name] = append(fields[name], fieldMessage(fe))
	}
	jsonResponse(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields})
	return false
}

// fieldName returns the JSON path of the failing field without the root struct name.
func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_with", "required_if":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "hexcolor":
		return "must be a colour like #1A2B3C"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "ne":
		return "cannot be " + fe.Param()
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	}
	return "is invalid"
}

// pathID parses the {id} path value. On failure it writes a 400 and returns false.
func pathID(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid "+what+" id")
		return 0, false
	}
	return id, true
}

// queryInt64 parses an optional integer query parameter.
func queryInt64(r *http.Request, key string) (int64, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, errors.New("invalid " + key)
	}
	return n, nil
}

// queryTime parses an optional RFC 3339 time or YYYY-MM-DD date query parameter.
func queryTime(r *http.Request, key string) (time.Time, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, errors.New("invalid " + key + " date")
}

func queryBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return b
}

// queryParser collects the first error while reading several query parameters.
type queryParser struct {
	r   *http.Request
	err error
}

func (p *queryParser) int64(key string) int64 {
	if p.err != nil {
		return 0
	}
	n, err := queryInt64(p.r, key)
	p.err = err
	return n
}

func (p *queryParser) int(key string) int {
	return int(p.int64(key))
}

func (p *queryParser) time(key string) time.Time {
	if p.err != nil {
		return time.Time{}
	}
	t, err := queryTime(p.r, key)
	p.err = err
	return t
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

package calculator

import (
	"encoding/json"
	"fmt"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"nutritrack/internal/common/errors"
	"nutritrack/internal/common/logger"
	"nutritrack/internal/common/metrics"
)

const maxBodyBytes = 1 << 16

const invalidInputMessage = "Invalid input data. Please make sure all fields are filled out correctly."

type Handler struct {
	logger logger.Logger
}

func NewHandler(log logger.Logger) *Handler {
	return &Handler{logger: log.WithFields(map[string]interface{}{"component": "calculator"})}
}

type errorResponse struct {
	Error *errors.StandardError `json:"error"`
}

// ServeHTTP accepts the form either as JSON or as a url-encoded POST body.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.writeError(w, http.StatusMethodNotAllowed, errors.NewValidationError("method not allowed"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	doc, err := decodeForm(r)
	if err != nil {
		h.logger.Warn("Calculator request rejected", map[string]interface{}{"error": err.Error()})
		stdErr := errors.NewValidationError(err.Error())
		stdErr.Message = invalidInputMessage
		h.writeError(w, http.StatusBadRequest, stdErr)
		return
	}

	if err := validate(doc); err != nil {
		h.logger.Warn("Calculator request failed validation", map[string]interface{}{"error": err.Error()})
		h.writeError(w, http.StatusBadRequest, errors.AsStandardError(err))
		return
	}

	req, err := requestFromDocument(doc)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.NewValidationError(err.Error()))
		return
	}

	result, err := Calculate(req)
	if err != nil {
		h.logger.Warn("Calculation rejected", map[string]interface{}{
			"activityLevel": req.ActivityLevel,
			"error":         err.Error(),
		})
		h.writeError(w, http.StatusBadRequest, errors.AsStandardError(err))
		return
	}

	h.logger.Debug("Calculation completed", map[string]interface{}{
		"dailyCalories": result.DailyCalories,
	})
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err *errors.StandardError) {
	h.writeJSON(w, status, errorResponse{Error: err})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	metrics.CalculatorRequests.WithLabelValues(strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to write response", map[string]interface{}{"error": err.Error()})
	}
}

func decodeForm(r *http.Request) (map[string]interface{}, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		doc := map[string]interface{}{}
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("malformed JSON body: %w", err)
		}
		return doc, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("malformed form body: %w", err)
	}
	doc := map[string]interface{}{}
	for _, field := range []string{"age", "weight", "goal", "activity_level", "gender"} {
		if !r.PostForm.Has(field) {
			continue
		}
		raw := strings.TrimSpace(r.PostForm.Get(field))
		if field == "age" || field == "weight" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("%s must be a whole number, got %q", field, raw)
			}
			doc[field] = n
			continue
		}
		doc[field] = raw
	}
	return doc, nil
}

// requestFromDocument converts a document that already passed the schema.
func requestFromDocument(doc map[string]interface{}) (Request, error) {
	age, err := toInt(doc["age"])
	if err != nil {
		return Request{}, fmt.Errorf("age: %w", err)
	}
	weight, err := toInt(doc["weight"])
	if err != nil {
		return Request{}, fmt.Errorf("weight: %w", err)
	}
	return Request{
		Age:           age,
		Weight:        weight,
		Goal:          fmt.Sprint(doc["goal"]),
		ActivityLevel: fmt.Sprint(doc["activity_level"]),
		Gender:        fmt.Sprint(doc["gender"]),
	}, nil
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("not a whole number: %v", f)
		}
		return int(f), nil
	default:
		return 0, fmt.Errorf("unsupported value %T", v)
	}
}

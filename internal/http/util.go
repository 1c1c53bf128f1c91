package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message, Status: status})
}

// requestError is a guard failure detected before the service is called.
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

// readBodyJSON applies the body guards and decodes a non-empty JSON object.
// Numbers decode as json.Number.
func readBodyJSON(r *http.Request, maxBytes int64) (map[string]any, *requestError) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return nil, &requestError{http.StatusUnsupportedMediaType, "Content-Type must be application/json"}
	}
	if r.ContentLength > maxBytes {
		return nil, &requestError{http.StatusRequestEntityTooLarge, "Request payload too large"}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return nil, &requestError{http.StatusBadRequest, "Failed to read request body"}
	}
	if int64(len(body)) > maxBytes {
		return nil, &requestError{http.StatusRequestEntityTooLarge, "Request payload too large"}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &requestError{http.StatusBadRequest, "Empty request body"}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &requestError{http.StatusBadRequest, "Request body must be JSON"}
	}
	if v == nil {
		return nil, &requestError{http.StatusBadRequest, "Empty request body"}
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &requestError{http.StatusBadRequest, "Request body must be a JSON object"}
	}
	if len(obj) == 0 {
		return nil, &requestError{http.StatusBadRequest, "Empty request body"}
	}
	return obj, nil
}

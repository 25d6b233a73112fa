package http

import (
	"encoding/json"
	"net/http"
)

// apiError is the error envelope. Error repeats Message for clients that
// read the error key.
type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{
		"status":  "success",
		"message": message,
	})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, newAPIError(code, message))
}

func newAPIError(code, message string) apiError {
	return apiError{
		Status:  "error",
		Code:    code,
		Message: message,
		Error:   message,
	}
}

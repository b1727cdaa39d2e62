package rest

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

const genericErrorMessage = "Something went wrong"

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MessageResponse is the body of successful calls that return no resource.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, MessageResponse{Success: true, Message: message})
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Success: false, Message: message})
}

// WriteInternalError logs the cause and answers with a generic 500 so storage details never leak to callers.
func WriteInternalError(w http.ResponseWriter, r *http.Request, err error) {
	log.Errorf("%s %s failed: %v", r.Method, r.URL.Path, err)
	WriteError(w, http.StatusInternalServerError, genericErrorMessage)
}

// DecodeJSON reads a JSON body of at most 1MB into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(dst)
}

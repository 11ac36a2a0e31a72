// Package respond writes the {success, data, message} envelope shared by
// every API response.
package respond

import (
	"encoding/json"
	"net/http"
)

// Envelope is the response body of every /api endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// JSON writes a successful envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{Success: true, Data: data})
}

// JSONMessage writes a successful envelope with a user-facing message.
func JSONMessage(w http.ResponseWriter, status int, data any, msg string) {
	write(w, status, Envelope{Success: true, Data: data, Message: msg})
}

// Error writes a failed envelope. data may carry the state the failure
// left behind (e.g. the session view after a failed commit).
func Error(w http.ResponseWriter, status int, msg string, data any) {
	write(w, status, Envelope{Success: false, Data: data, Message: msg})
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(env)
}

// Package envelope writes the {status, data|message} JSON responses shared by
// every cvapi endpoint.
package envelope

import (
	"encoding/json"
	"net/http"

	"github.com/duongduc025/CV-Management-sub000/pkg/sdk"
)

// Data writes a success envelope carrying data.
func Data(w http.ResponseWriter, status int, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	write(w, status, sdk.Envelope{Status: sdk.StatusSuccess, Data: raw})
}

// Message writes a success envelope carrying only a message.
func Message(w http.ResponseWriter, status int, message string) {
	write(w, status, sdk.Envelope{Status: sdk.StatusSuccess, Message: message})
}

// Error writes an error envelope.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, sdk.Envelope{Status: sdk.StatusError, Message: message})
}

// Decode reads a JSON request body into dst, rejecting unknown fields.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func write(w http.ResponseWriter, status int, env sdk.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Envelope is the response body shape used by every endpoint.
type Envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Envelope status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the data of a successful login: the user plus a token pair.
type LoginResult struct {
	User
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshRequest is the body of POST /auth/refresh and POST /auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenPair is the data of a successful refresh. RefreshToken is empty when
// the server does not rotate refresh tokens.
type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// RegisterInput is the body of POST /auth/register. The server always adds the
// Employee role.
type RegisterInput struct {
	EmployeeCode string   `json:"employee_code"`
	FullName     string   `json:"full_name"`
	Email        string   `json:"email"`
	Password     string   `json:"password"`
	DepartmentID string   `json:"department_id,omitempty"`
	RoleNames    []string `json:"role_names,omitempty"`
}

// decodeEnvelope reads resp and unmarshals its data into out (when non-nil).
// Non-2xx responses become *HTTPError carrying the envelope message.
func decodeEnvelope(resp *http.Response, out any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	var env Envelope
	if len(body) > 0 {
		if err := json.Unmarshal(body, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if env.Status == StatusError {
		return &HTTPError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return errors.New("response has no data")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

// DashboardLink is one entry of GET /dashboards: a dashboard the caller may
// open and the client route that renders it.
type DashboardLink struct {
	Scope string `json:"scope"`
	Role  string `json:"role"`
	Route string `json:"route"`
}

// Dashboard is the data of GET /dashboards/{scope}.
type Dashboard struct {
	DashboardLink
	User User `json:"user"`
}

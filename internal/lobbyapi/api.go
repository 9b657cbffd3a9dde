// Package lobbyapi holds the wire types shared by the lobby server and the
// HTTP backend.
package lobbyapi

import "github.com/hay-kot/lobby/internal/core/session"

// Routes served under the API prefix.
const (
	APIPrefix    = "/api/v1"
	SessionsPath = APIPrefix + "/sessions"
)

// JoinPath returns the join endpoint for a session.
func JoinPath(id string) string {
	return SessionsPath + "/" + id + "/join"
}

// FindResponse is the body of GET /api/v1/sessions.
type FindResponse struct {
	Sessions []session.Record `json:"sessions"`
}

// CreateRequest is the body of POST /api/v1/sessions.
type CreateRequest struct {
	session.Config
	HostPlayer string `json:"host_player,omitempty"`
}

// CreateResponse is the body of a successful create.
type CreateResponse struct {
	ID string `json:"id"`
}

// JoinRequest is the body of POST /api/v1/sessions/{id}/join.
type JoinRequest struct {
	JoinToken string `json:"join_token"`
	Player    string `json:"player"`
	Password  string `json:"password,omitempty"`
}

// JoinResponse is returned for every join attempt, successful or not.
type JoinResponse struct {
	Result        string `json:"result"`
	ConnectString string `json:"connect_string,omitempty"`
}

// ErrorResponse is returned for malformed or rejected requests.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

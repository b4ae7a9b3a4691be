package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pratik-mahalle/jobtrail/internal/api/middleware"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/errors"
	"github.com/pratik-mahalle/jobtrail/internal/pkg/utils"
)

const maxRequestBody = 64 << 10

// requireUser returns the authenticated user id or writes 401
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("User not authenticated"))
		return "", false
	}
	return userID, true
}

// decodeJSON decodes an optional JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil {
		return true
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(dst)
	if err != nil && err != io.EOF {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return false
	}
	return true
}

// requestBaseURL returns the configured public URL or the scheme and host the
// request arrived on
func requestBaseURL(r *http.Request, configured string) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host
}

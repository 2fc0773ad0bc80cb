package middleware

import (
	"encoding/json"
	"net/http"
)

// Same error envelope the handlers use; duplicated rather than shared so the
// middleware package has no dependency on the handler package.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]map[string]string{
		"error": {"code": code, "message": message},
	})
}

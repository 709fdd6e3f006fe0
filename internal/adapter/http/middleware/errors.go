package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/iho/branchledger/internal/adapter/http/dto"
)

// writeJSONError answers with the same error body the handlers use.
func writeJSONError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: message, Message: details})
}

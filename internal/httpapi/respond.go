package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/phigros-go/phigros-backend/internal/apierr"
	"github.com/phigros-go/phigros-backend/internal/reqid"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError renders err as an RFC 7807 problem+json body, logging
// internal-kind failures at error level since those indicate a bug or
// infrastructure fault rather than a client mistake.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apierr.As(err)
	requestID := reqid.FromContext(r.Context())
	problem := apiErr.ToProblem(requestID)

	if apiErr.Kind == apierr.KindInternal {
		zap.L().Error("request failed",
			zap.String("request_id", requestID),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}

func decodeJSONBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return apierr.New(apierr.KindJSON, "request body is required")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apierr.Wrap(apierr.KindJSON, err, "malformed request body")
	}
	return nil
}

package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	svcerrors "github.com/nftbarter/discovery-engine/infrastructure/errors"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err in the shape spec.md §6 documents. Non-ServiceError
// values are treated as Internal and never leak their message text, per
// spec.md §7's production error-elision policy.
func writeError(w http.ResponseWriter, requestID string, err error) {
	se, ok := svcerrors.GetServiceError(err)
	if !ok {
		se = svcerrors.Internal(err)
	}

	body := errorEnvelope{Error: errorBody{
		Code:      string(se.Code),
		Message:   se.Message,
		Details:   se.Details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}}

	if se.HTTPStatus == http.StatusTooManyRequests {
		if retry, ok := se.Details["retryAfterSeconds"]; ok {
			if seconds, ok := retry.(int); ok {
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
			}
		}
	}

	writeJSON(w, se.HTTPStatus, body)
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return svcerrors.InvalidInput("malformed request body: %v", err)
	}
	return nil
}

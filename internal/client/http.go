package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/example/studyquest/pkg/models"
)

// StatusError is a non-2xx answer from the server
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("sync failed with status %d", e.Status)
	}
	return fmt.Sprintf("sync failed with status %d: [%s] %s", e.Status, e.Code, e.Message)
}

// Retryable reports whether resending the same batch may succeed
func (e *StatusError) Retryable() bool {
	switch {
	case e.Status >= 500:
		return true
	case e.Status == http.StatusTooManyRequests, e.Status == http.StatusRequestTimeout:
		return true
	default:
		return false
	}
}

// HTTPSyncer posts reward batches to the studyquest API
type HTTPSyncer struct {
	baseURL   string
	profileID int64
	token     string
	client    *http.Client
}

// NewHTTPSyncer returns a Syncer for profileID authenticated with a bearer token
func NewHTTPSyncer(baseURL string, profileID int64, token string) *HTTPSyncer {
	return &HTTPSyncer{
		baseURL:   strings.TrimRight(baseURL, "/"),
		profileID: profileID,
		token:     token,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Sync sends one batch and decodes the canonical state
func (s *HTTPSyncer) Sync(ctx context.Context, req models.SyncRequest) (models.SyncResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return models.SyncResponse{}, errors.Wrap(err, "failed to marshal sync request")
	}

	url := fmt.Sprintf("%s/api/v1/profiles/%d/sync", s.baseURL, s.profileID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return models.SyncResponse{}, errors.Wrap(err, "failed to create sync request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return models.SyncResponse{}, errors.Wrap(err, "failed to send sync request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		statusErr := &StatusError{Status: resp.StatusCode}
		var payload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.NewDecoder(resp.Body).Decode(&payload) == nil {
			statusErr.Code = payload.Code
			statusErr.Message = payload.Message
		}
		return models.SyncResponse{}, statusErr
	}

	var out models.SyncResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.SyncResponse{}, errors.Wrap(err, "failed to decode sync response")
	}
	return out, nil
}

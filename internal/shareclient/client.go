// Package shareclient e-mails reports to doctors through the backend's
// share endpoint, after client-side validation of the request.
package shareclient

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"neuroscan/internal/api"
	"neuroscan/internal/validate"
	"neuroscan/pkg/domain"
)

// ErrDemoPrediction marks an attempt to share placeholder/sample data. The
// share call is refused before any network traffic.
var ErrDemoPrediction = errors.New("cannot share demo or sample data; run a real analysis first")

// Client wraps the share endpoint.
type Client struct {
	api *api.Client
}

func New(apiClient *api.Client) *Client {
	return &Client{api: apiClient}
}

// Response is the backend's acknowledgement of a share request.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ParsePredictionID accepts only real, server-assigned integer ids. Demo
// rows carry formatted "PT-" strings and must never reach the backend.
func ParsePredictionID(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "PT-") {
		return 0, ErrDemoPrediction
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, ErrDemoPrediction
	}
	return id, nil
}

// ShareReport validates and submits a share request.
func (c *Client) ShareReport(ctx context.Context, req domain.ShareRequest) (Response, error) {
	if req.PredictionID <= 0 {
		return Response{}, ErrDemoPrediction
	}
	if errs := validate.ShareForm(req.DoctorName, req.DoctorEmail, req.Notes); len(errs) > 0 {
		return Response{}, errors.Join(errs...)
	}
	var resp Response
	if err := c.api.Post(ctx, "/share/share-report", req, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

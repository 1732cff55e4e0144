// Package historyclient calls the remote patient/history persistence
// service: paginated prediction history, single records, annotation
// updates, statistics and patient CRUD.
package historyclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"neuroscan/internal/api"
	"neuroscan/pkg/domain"
)

// Client wraps the history endpoints.
type Client struct {
	api *api.Client
}

func New(apiClient *api.Client) *Client {
	return &Client{api: apiClient}
}

// HistoryParams select a server-filtered page of prediction history.
// ModelType and Search are optional; the backend paginates and filters but
// does not sort.
type HistoryParams struct {
	Page      int
	PerPage   int
	ModelType domain.ModelType
	Search    string
}

func (p HistoryParams) encode() string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(p.Page))
	q.Set("per_page", strconv.Itoa(p.PerPage))
	if p.ModelType != "" {
		q.Set("model_type", string(p.ModelType))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	return q.Encode()
}

// PredictionHistory fetches one server-filtered page.
func (c *Client) PredictionHistory(ctx context.Context, p HistoryParams) (domain.HistoryPage, error) {
	var page domain.HistoryPage
	if err := c.api.Get(ctx, "/history/predictions/history?"+p.encode(), &page); err != nil {
		return domain.HistoryPage{}, err
	}
	return page, nil
}

// Prediction fetches a single record with its embedded patient.
func (c *Client) Prediction(ctx context.Context, id int) (domain.PredictionRecord, error) {
	var rec domain.PredictionRecord
	if err := c.api.Get(ctx, fmt.Sprintf("/history/predictions/%d", id), &rec); err != nil {
		return domain.PredictionRecord{}, err
	}
	return rec, nil
}

// PredictionUpdate is the partial update the client may forward back.
type PredictionUpdate struct {
	Notes  *string                  `json:"notes,omitempty"`
	Status *domain.PredictionStatus `json:"status,omitempty"`
}

// UpdatePrediction forwards notes/status changes.
func (c *Client) UpdatePrediction(ctx context.Context, id int, update PredictionUpdate) (domain.PredictionRecord, error) {
	var rec domain.PredictionRecord
	if err := c.api.Put(ctx, fmt.Sprintf("/history/predictions/%d", id), update, &rec); err != nil {
		return domain.PredictionRecord{}, err
	}
	return rec, nil
}

// AddNote attaches free-text notes to a record.
func (c *Client) AddNote(ctx context.Context, id int, notes string) (domain.PredictionRecord, error) {
	return c.UpdatePrediction(ctx, id, PredictionUpdate{Notes: &notes})
}

// SetStatus moves a record to a new review status.
func (c *Client) SetStatus(ctx context.Context, id int, status domain.PredictionStatus) (domain.PredictionRecord, error) {
	return c.UpdatePrediction(ctx, id, PredictionUpdate{Status: &status})
}

// Statistics fetches aggregate counts by model type and status.
func (c *Client) Statistics(ctx context.Context) (domain.Statistics, error) {
	var stats domain.Statistics
	if err := c.api.Get(ctx, "/history/predictions/statistics", &stats); err != nil {
		return domain.Statistics{}, err
	}
	return stats, nil
}

// Patients lists patients, optionally filtered by a search term. Paging is
// skip/limit based, matching the backend contract.
func (c *Client) Patients(ctx context.Context, search string, skip, limit int) ([]domain.Patient, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))
	if search != "" {
		q.Set("search", search)
	}
	var patients []domain.Patient
	if err := c.api.Get(ctx, "/history/patients?"+q.Encode(), &patients); err != nil {
		return nil, err
	}
	return patients, nil
}

// Patient fetches one patient by id.
func (c *Client) Patient(ctx context.Context, id int) (domain.Patient, error) {
	var p domain.Patient
	if err := c.api.Get(ctx, fmt.Sprintf("/history/patients/%d", id), &p); err != nil {
		return domain.Patient{}, err
	}
	return p, nil
}

// CreatePatient registers a patient ahead of an upload.
func (c *Client) CreatePatient(ctx context.Context, patient domain.Patient) (domain.Patient, error) {
	var created domain.Patient
	if err := c.api.Post(ctx, "/history/patients", patient, &created); err != nil {
		return domain.Patient{}, err
	}
	return created, nil
}

// UpdatePatient edits patient demographics.
func (c *Client) UpdatePatient(ctx context.Context, id int, patient domain.Patient) (domain.Patient, error) {
	var updated domain.Patient
	if err := c.api.Put(ctx, fmt.Sprintf("/history/patients/%d", id), patient, &updated); err != nil {
		return domain.Patient{}, err
	}
	return updated, nil
}

// DeletePatient removes a patient.
func (c *Client) DeletePatient(ctx context.Context, id int) error {
	return c.api.Delete(ctx, fmt.Sprintf("/history/patients/%d", id), nil)
}

// PatientPredictions lists one patient's predictions, skip/limit paged.
func (c *Client) PatientPredictions(ctx context.Context, patientID, skip, limit int) ([]domain.PredictionRecord, error) {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))
	var records []domain.PredictionRecord
	path := fmt.Sprintf("/history/patients/%d/predictions?%s", patientID, q.Encode())
	if err := c.api.Get(ctx, path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

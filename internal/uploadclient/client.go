// Package uploadclient submits scan images to the model-specific upload
// endpoints as multipart payloads carrying the patient intake fields.
package uploadclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strconv"

	"neuroscan/internal/api"
	"neuroscan/pkg/domain"
)

// Client wraps the upload endpoints.
type Client struct {
	api *api.Client
}

func New(apiClient *api.Client) *Client {
	return &Client{api: apiClient}
}

// PatientForm carries the intake fields sent alongside the image. Either
// PatientID selects an existing patient or the remaining fields create one.
type PatientForm struct {
	PatientID int
	Name      string
	DOB       string
	Gender    string
	Phone     string
	Notes     string
}

// UploadTumor submits a brain MRI for tumor classification.
func (c *Client) UploadTumor(ctx context.Context, filename string, image io.Reader, form PatientForm) (domain.PredictionRecord, error) {
	return c.upload(ctx, "/upload/tumor", filename, image, form)
}

// UploadChest submits a chest X-ray for pneumonia detection.
func (c *Client) UploadChest(ctx context.Context, filename string, image io.Reader, form PatientForm) (domain.PredictionRecord, error) {
	return c.upload(ctx, "/upload/chest", filename, image, form)
}

func (c *Client) upload(ctx context.Context, path, filename string, image io.Reader, form PatientForm) (domain.PredictionRecord, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return domain.PredictionRecord{}, fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return domain.PredictionRecord{}, fmt.Errorf("read image: %w", err)
	}

	fields := map[string]string{
		"patient_name":   form.Name,
		"patient_dob":    form.DOB,
		"patient_gender": form.Gender,
		"patient_phone":  form.Phone,
		"notes":          form.Notes,
	}
	if form.PatientID > 0 {
		fields["patient_id"] = strconv.Itoa(form.PatientID)
		// Existing patients keep their recorded date of birth.
		delete(fields, "patient_dob")
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return domain.PredictionRecord{}, fmt.Errorf("build upload: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return domain.PredictionRecord{}, fmt.Errorf("build upload: %w", err)
	}

	var rec domain.PredictionRecord
	if err := c.api.PostMultipart(ctx, path, writer.FormDataContentType(), &body, &rec); err != nil {
		return domain.PredictionRecord{}, err
	}
	return rec, nil
}

package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"time"

	"neuroscan/internal/uploadclient"
	"neuroscan/internal/validate"
	"neuroscan/pkg/domain"
)

func (a *app) cmdUpload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	file := fs.String("file", "", "path to the scan image")
	model := fs.String("model", "", "analysis model: tumor|chest")
	patientID := fs.Int("patient-id", 0, "existing patient id (skips the intake fields)")
	name := fs.String("name", "", "patient full name")
	dob := fs.String("dob", "", "patient date of birth (YYYY-MM-DD)")
	gender := fs.String("gender", "", "patient gender")
	phone := fs.String("phone", "", "patient phone (10 digits)")
	notes := fs.String("notes", "", "clinical notes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *file == "" {
		return fmt.Errorf("--file is required")
	}
	if *model != "tumor" && *model != "chest" {
		return fmt.Errorf("--model must be tumor or chest")
	}

	info, err := os.Stat(*file)
	if err != nil {
		return fmt.Errorf("read scan: %w", err)
	}
	if err := validate.UploadFile(info.Name(), info.Size()); err != nil {
		return err
	}

	form := uploadclient.PatientForm{
		PatientID: *patientID,
		Name:      *name,
		DOB:       *dob,
		Gender:    *gender,
		Notes:     *notes,
	}
	if *patientID == 0 {
		if err := validate.FullName(*name); err != nil {
			return err
		}
		if err := validate.DateOfBirth(*dob, time.Now()); err != nil {
			return err
		}
	}
	form.Phone, err = validate.NormalizePhone(*phone)
	if err != nil {
		return err
	}

	if err := a.requireAuth(ctx); err != nil {
		return err
	}

	// Read fully up front so the archive mirror can reuse the bytes
	// without a second disk pass.
	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read scan: %w", err)
	}

	var rec domain.PredictionRecord
	switch *model {
	case "tumor":
		rec, err = a.upload.UploadTumor(ctx, info.Name(), bytes.NewReader(data), form)
	case "chest":
		rec, err = a.upload.UploadChest(ctx, info.Name(), bytes.NewReader(data), form)
	}
	if err != nil {
		return a.reportErr(err)
	}

	fmt.Printf("Analysis complete: %s (%.1f%% confidence)\n", rec.Prediction, rec.Confidence*100)
	fmt.Printf("Prediction id %d; view with 'neuroscan result show --id %d'.\n", rec.ID, rec.ID)
	if rec.Message != "" {
		fmt.Println(rec.Message)
	}

	a.archiveScan(ctx, info.Name(), data)

	// New analyses invalidate the cached history.
	if user, ok := a.session.User(); ok {
		a.engine.Refresh(ctx, user.ID)
	}
	return nil
}

// archiveScan mirrors the uploaded image to the object store when one is
// configured. Failures are logged, never surfaced: archiving is auxiliary.
func (a *app) archiveScan(ctx context.Context, filename string, data []byte) {
	if a.archive == nil {
		return
	}
	user, ok := a.session.User()
	if !ok {
		return
	}
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key, err := a.archive.StoreScan(ctx, user.ID, filename, contentType,
		bytes.NewReader(data), int64(len(data)))
	if err != nil {
		slog.Warn("scan archive write failed", "err", err)
		return
	}
	slog.Info("scan archived", "key", key)
}

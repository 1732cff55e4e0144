package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"neuroscan/internal/shareclient"
	"neuroscan/internal/validate"
	"neuroscan/pkg/domain"
)

func (a *app) cmdShare(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("share", flag.ContinueOnError)
	id := fs.String("id", "", "prediction id to share")
	doctorName := fs.String("doctor-name", "", "recipient doctor's name")
	doctorEmail := fs.String("doctor-email", "", "recipient doctor's email")
	notes := fs.String("notes", "", "message to include (max 1000 characters)")
	pdf := fs.Bool("pdf", true, "attach the PDF report")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Demo/sample rows carry display ids, not database ids; shareable
	// reports only exist for real analyses, so refuse before any request.
	predictionID, err := shareclient.ParsePredictionID(*id)
	if err != nil {
		return err
	}
	if errs := validate.ShareForm(*doctorName, *doctorEmail, *notes); len(errs) > 0 {
		return errors.Join(errs...)
	}
	if err := a.requireAuth(ctx); err != nil {
		return err
	}

	user, _ := a.session.User()
	resp, err := a.share.ShareReport(ctx, domain.ShareRequest{
		PredictionID: predictionID,
		DoctorName:   *doctorName,
		DoctorEmail:  *doctorEmail,
		SenderName:   user.FullName,
		Notes:        *notes,
		IncludePDF:   *pdf,
	})
	if err != nil {
		return a.reportErr(err)
	}
	if resp.Message != "" {
		fmt.Println(resp.Message)
	} else {
		fmt.Printf("Report %d sent to %s.\n", predictionID, *doctorEmail)
	}
	return nil
}

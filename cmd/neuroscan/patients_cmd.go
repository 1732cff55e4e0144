package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"neuroscan/internal/results"
	"neuroscan/internal/validate"
	"neuroscan/pkg/domain"
)

func (a *app) cmdPatients(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("patients", flag.ContinueOnError)
	search := fs.String("search", "", "filter by name")
	skip := fs.Int("skip", 0, "rows to skip")
	limit := fs.Int("limit", 50, "max rows")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireAuth(ctx); err != nil {
		return err
	}

	patients, err := a.history.Patients(ctx, *search, *skip, *limit)
	if err != nil {
		return a.reportErr(err)
	}
	if len(patients) == 0 {
		fmt.Println("No patients found.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDOB\tGENDER\tPHONE")
	for _, p := range patients {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			results.FormatPatientID(p.ID), p.FullName, orNA(p.DateOfBirth),
			orNA(p.Gender), orNA(p.Phone))
	}
	return w.Flush()
}

func (a *app) cmdPatient(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: neuroscan patient <show|create|update|delete> [flags]")
	}
	sub, rest := args[0], args[1:]
	fs := flag.NewFlagSet("patient "+sub, flag.ContinueOnError)
	id := fs.Int("id", 0, "patient id")
	name := fs.String("name", "", "full name")
	dob := fs.String("dob", "", "date of birth (YYYY-MM-DD)")
	gender := fs.String("gender", "", "gender")
	phone := fs.String("phone", "", "phone (10 digits)")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if err := a.requireAuth(ctx); err != nil {
		return err
	}

	switch sub {
	case "show":
		if *id <= 0 {
			return fmt.Errorf("--id is required")
		}
		patient, err := a.history.Patient(ctx, *id)
		if err != nil {
			return a.reportErr(err)
		}
		printPatient(patient)
		preds, err := a.history.PatientPredictions(ctx, *id, 0, 20)
		if err != nil {
			return a.reportErr(err)
		}
		if len(preds) > 0 {
			fmt.Println("Recent analyses:")
			for _, rec := range preds {
				fmt.Printf("  %d  %-24s %-20s %.1f%%  %s\n", rec.ID,
					rec.ModelType.DisplayName(), rec.Prediction,
					rec.Confidence*100, rec.CreatedAt.Local().Format("2006-01-02"))
			}
		}
		return nil
	case "create":
		patient, err := a.patientFromFlags(*name, *dob, *gender, *phone)
		if err != nil {
			return err
		}
		created, err := a.history.CreatePatient(ctx, patient)
		if err != nil {
			return a.reportErr(err)
		}
		fmt.Printf("Created patient %s.\n", results.FormatPatientID(created.ID))
		return nil
	case "update":
		if *id <= 0 {
			return fmt.Errorf("--id is required")
		}
		patient, err := a.patientFromFlags(*name, *dob, *gender, *phone)
		if err != nil {
			return err
		}
		updated, err := a.history.UpdatePatient(ctx, *id, patient)
		if err != nil {
			return a.reportErr(err)
		}
		fmt.Printf("Updated patient %s.\n", results.FormatPatientID(updated.ID))
		return nil
	case "delete":
		if *id <= 0 {
			return fmt.Errorf("--id is required")
		}
		if err := a.history.DeletePatient(ctx, *id); err != nil {
			return a.reportErr(err)
		}
		fmt.Printf("Deleted patient %s.\n", results.FormatPatientID(*id))
		return nil
	default:
		return fmt.Errorf("unknown patient subcommand %q", sub)
	}
}

func (a *app) patientFromFlags(name, dob, gender, phone string) (domain.Patient, error) {
	if err := validate.FullName(name); err != nil {
		return domain.Patient{}, err
	}
	if err := validate.DateOfBirth(dob, time.Now()); err != nil {
		return domain.Patient{}, err
	}
	normalized, err := validate.NormalizePhone(phone)
	if err != nil {
		return domain.Patient{}, err
	}
	return domain.Patient{
		FullName:    name,
		DateOfBirth: dob,
		Gender:      gender,
		Phone:       normalized,
	}, nil
}

func printPatient(p domain.Patient) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Patient\t%s\n", results.FormatPatientID(p.ID))
	fmt.Fprintf(w, "Name\t%s\n", p.FullName)
	fmt.Fprintf(w, "DOB\t%s\n", orNA(p.DateOfBirth))
	fmt.Fprintf(w, "Gender\t%s\n", orNA(p.Gender))
	fmt.Fprintf(w, "Phone\t%s\n", orNA(p.Phone))
	w.Flush()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

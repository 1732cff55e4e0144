package results

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"neuroscan/pkg/domain"
)

// Entry is the display-ready projection of a PredictionRecord and its
// patient: resolved labels, formatted patient id and localized timestamps.
type Entry struct {
	ID            int                `json:"id"`
	PatientName   string             `json:"patientName"`
	PatientID     string             `json:"patientId"`
	Age           string             `json:"age"`
	AnalysisType  string             `json:"analysisType"`
	Result        string             `json:"result"`
	Confidence    int                `json:"confidence"`
	Date          string             `json:"date"`
	Time          string             `json:"time"`
	Status        string             `json:"status"`
	ModelType     domain.ModelType   `json:"model_type"`
	Notes         string             `json:"notes,omitempty"`
	Entropy       *float64           `json:"entropy,omitempty"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
	Patient       domain.Patient     `json:"patient"`
	ImageFilename string             `json:"image_filename,omitempty"`
	Message       string             `json:"message,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// newEntry flattens a record for display. loc is the clinic's presentation
// timezone; now anchors the age calculation.
func newEntry(rec domain.PredictionRecord, loc *time.Location, now time.Time) Entry {
	local := rec.CreatedAt.In(loc)
	return Entry{
		ID:            rec.ID,
		PatientName:   rec.Patient.FullName,
		PatientID:     FormatPatientID(rec.Patient.ID),
		Age:           ageString(rec.Patient.DateOfBirth, now.In(loc)),
		AnalysisType:  rec.ModelType.DisplayName(),
		Result:        rec.Prediction,
		Confidence:    int(math.Round(rec.Confidence * 100)),
		Date:          local.Format("January 2, 2006"),
		Time:          local.Format("3:04 PM -0700"),
		Status:        string(rec.Status),
		ModelType:     rec.ModelType,
		Notes:         rec.Notes,
		Entropy:       rec.Entropy,
		Probabilities: rec.Probabilities,
		Patient:       rec.Patient,
		ImageFilename: rec.ImageFilename,
		Message:       rec.Message,
		CreatedAt:     rec.CreatedAt,
	}
}

// FormatPatientID renders the zero-padded display form, e.g. PT-000123.
func FormatPatientID(id int) string {
	return fmt.Sprintf("PT-%06d", id)
}

// ageString computes completed years between the date of birth and today.
func ageString(dob string, today time.Time) string {
	if dob == "" {
		return "N/A"
	}
	birth, err := time.Parse("2006-01-02", dob)
	if err != nil {
		if birth, err = time.Parse(time.RFC3339, dob); err != nil {
			return "N/A"
		}
	}
	age := today.Year() - birth.Year()
	if today.Month() < birth.Month() ||
		(today.Month() == birth.Month() && today.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return "N/A"
	}
	return strconv.Itoa(age)
}

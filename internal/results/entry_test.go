package results

import (
	"testing"
	"time"

	"neuroscan/pkg/domain"
)

func TestNewEntryFormatsForDisplay(t *testing.T) {
	kathmandu, err := time.LoadLocation("Asia/Kathmandu")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	created := time.Date(2026, time.August, 30, 18, 30, 0, 0, time.UTC)
	now := time.Date(2026, time.August, 31, 10, 0, 0, 0, time.UTC)

	entry := newEntry(domain.PredictionRecord{
		ID:         42,
		Patient:    domain.Patient{ID: 123, FullName: "Asha Rai", DateOfBirth: "1990-09-15"},
		ModelType:  domain.ModelTumor,
		Prediction: "glioma",
		Confidence: 0.876,
		Status:     domain.StatusCompleted,
		CreatedAt:  created,
	}, kathmandu, now)

	if entry.PatientID != "PT-000123" {
		t.Fatalf("unexpected patient id: %q", entry.PatientID)
	}
	if entry.AnalysisType != "Brain Tumor Detection" {
		t.Fatalf("unexpected analysis label: %q", entry.AnalysisType)
	}
	if entry.Confidence != 88 {
		t.Fatalf("confidence rounds to a whole percentage, got %d", entry.Confidence)
	}
	// 18:30 UTC is 00:15 the next day in Kathmandu (UTC+5:45).
	if entry.Date != "August 31, 2026" {
		t.Fatalf("unexpected local date: %q", entry.Date)
	}
	if entry.Time != "12:15 AM +0545" {
		t.Fatalf("unexpected local time: %q", entry.Time)
	}
	// Birthday hasn't arrived this year yet.
	if entry.Age != "35" {
		t.Fatalf("unexpected age: %q", entry.Age)
	}
}

func TestAgeStringEdgeCases(t *testing.T) {
	today := time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		dob  string
		want string
	}{
		{"", "N/A"},
		{"garbage", "N/A"},
		{"2026-08-31", "0"},
		{"1990-08-31", "36"}, // birthday today counts
		{"1990-09-01", "35"}, // birthday tomorrow does not
	}
	for _, tc := range cases {
		if got := ageString(tc.dob, today); got != tc.want {
			t.Fatalf("ageString(%q) = %q, want %q", tc.dob, got, tc.want)
		}
	}
}

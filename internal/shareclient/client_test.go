package shareclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"neuroscan/internal/api"
	"neuroscan/pkg/domain"
)

func TestParsePredictionIDRejectsDemoIDs(t *testing.T) {
	for _, raw := range []string{"PT-000001", "PT-1", "abc", "", "0", "-4", "1.5"} {
		if _, err := ParsePredictionID(raw); !errors.Is(err, ErrDemoPrediction) {
			t.Fatalf("ParsePredictionID(%q): expected ErrDemoPrediction, got %v", raw, err)
		}
	}
}

func TestParsePredictionIDAcceptsServerIDs(t *testing.T) {
	id, err := ParsePredictionID(" 42 ")
	if err != nil || id != 42 {
		t.Fatalf("ParsePredictionID: id=%d err=%v", id, err)
	}
}

func TestShareReportRefusesInvalidRequestsBeforeNetwork(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(Response{Success: true})
	}))
	defer srv.Close()

	c := New(api.New(srv.URL, time.Second, nil))

	if _, err := c.ShareReport(context.Background(), domain.ShareRequest{
		PredictionID: 0,
		DoctorName:   "Dr. House",
		DoctorEmail:  "house@example.com",
	}); !errors.Is(err, ErrDemoPrediction) {
		t.Fatalf("expected ErrDemoPrediction, got %v", err)
	}
	if _, err := c.ShareReport(context.Background(), domain.ShareRequest{
		PredictionID: 3,
		DoctorName:   "X",
		DoctorEmail:  "not-an-email",
	}); err == nil {
		t.Fatalf("expected validation errors")
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("invalid requests must never reach the backend, got %d calls", n)
	}
}

func TestShareReportSubmitsValidRequests(t *testing.T) {
	var got domain.ShareRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/share/share-report" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(Response{Success: true, Message: "report sent"})
	}))
	defer srv.Close()

	c := New(api.New(srv.URL, time.Second, nil))
	resp, err := c.ShareReport(context.Background(), domain.ShareRequest{
		PredictionID: 42,
		DoctorName:   "Dr. Shrestha",
		DoctorEmail:  "shrestha@example.com",
		SenderName:   "Asha Rai",
		Notes:        "please review",
		IncludePDF:   true,
	})
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if !resp.Success || resp.Message != "report sent" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got.PredictionID != 42 || got.DoctorEmail != "shrestha@example.com" || !got.IncludePDF {
		t.Fatalf("unexpected request payload: %+v", got)
	}
}

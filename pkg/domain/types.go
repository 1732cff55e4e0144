package domain

import "time"

// ModelType identifies which analysis model produced a prediction.
type ModelType string

const (
	ModelTumor     ModelType = "tumor"
	ModelChestXRay ModelType = "chest_xray"
)

// PredictionStatus is the backend-side lifecycle state of a prediction.
type PredictionStatus string

const (
	StatusCompleted PredictionStatus = "completed"
	StatusPending   PredictionStatus = "pending"
	StatusReviewed  PredictionStatus = "reviewed"
)

// User is the authenticated account as reported by the auth service.
type User struct {
	ID         int    `json:"id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	IsVerified bool   `json:"is_verified"`
}

// Patient as held by the history service. The client only ever reads
// patients or submits new ones alongside an upload.
type Patient struct {
	ID          int    `json:"id"`
	FullName    string `json:"full_name"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// PredictionRecord is one completed analysis. Immutable once fetched except
// for the notes/status fields the client forwards back via an update call.
type PredictionRecord struct {
	ID            int                `json:"id"`
	Patient       Patient            `json:"patient"`
	ModelType     ModelType          `json:"model_type"`
	Prediction    string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
	Entropy       *float64           `json:"entropy,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	Status        PredictionStatus   `json:"status"`
	Message       string             `json:"message,omitempty"`
	ImageFilename string             `json:"image_filename,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
}

// HistoryPage is the paginated shape returned by the history endpoint.
type HistoryPage struct {
	Results    []PredictionRecord `json:"results"`
	Total      int                `json:"total"`
	TotalPages int                `json:"total_pages"`
}

// Statistics aggregates prediction counts by model type and status.
type Statistics struct {
	TotalPredictions int            `json:"total_predictions"`
	ByModelType      map[string]int `json:"by_model_type"`
	ByStatus         map[string]int `json:"by_status"`
}

// ShareRequest asks the backend to e-mail a report to a doctor. It is
// built per submission and discarded once the call resolves.
type ShareRequest struct {
	PredictionID int    `json:"prediction_id"`
	DoctorName   string `json:"doctor_name"`
	DoctorEmail  string `json:"doctor_email"`
	SenderName   string `json:"sender_name,omitempty"`
	Notes        string `json:"notes,omitempty"`
	IncludePDF   bool   `json:"include_pdf"`
}

// DisplayName resolves the human label for a model type.
func (m ModelType) DisplayName() string {
	switch m {
	case ModelTumor:
		return "Brain Tumor Detection"
	case ModelChestXRay:
		return "Pneumonia Detection"
	default:
		return "Unknown Analysis"
	}
}

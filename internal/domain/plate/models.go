package plate

import (
	"time"

	"github.com/google/uuid"
)

// VehicleRecord is produced only when the lookup oracle returns a genuine match.
type VehicleRecord struct {
	Year         int    `json:"year,omitempty"`
	Make         string `json:"make,omitempty"`
	Model        string `json:"model,omitempty"`
	VIN          string `json:"vin,omitempty"`
	SourceURL    string `json:"source_url"`
	MatchedPlate string `json:"matched_plate"`
}

// Capture holds the optional recording metadata of a video file.
type Capture struct {
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
}

type Phase string

const (
	PhaseNone     Phase = ""
	PhaseSeed     Phase = "seed"
	PhaseFallback Phase = "fallback"
)

// Car is the row handed to the persistence sink for every processed file,
// successful or not.
type Car struct {
	ID             int64
	RunID          uuid.UUID
	CapturedAt     *time.Time
	Year           int
	Make           string
	Model          string
	LicensePlate   string
	Color          string
	VIN            string
	Latitude       *float64
	Longitude      *float64
	VideoPath      string
	Jurisdiction   string
	SourceURL      string
	Success        bool
	ProcessSeconds float64
	OraclePayload  []byte
}

// FileResult summarizes one file of a batch run.
type FileResult struct {
	File       string         `json:"file"`
	SessionID  uuid.UUID      `json:"session_id"`
	Success    bool           `json:"success"`
	Plate      string         `json:"plate"`
	Phase      Phase          `json:"phase,omitempty"`
	Attempts   int            `json:"attempts"`
	Record     *VehicleRecord `json:"record,omitempty"`
	Elapsed    time.Duration  `json:"elapsed"`
	Failure    string         `json:"failure,omitempty"`
	Persisted  bool           `json:"persisted"`
	ArchivedTo string         `json:"archived_to,omitempty"`
}

// CarFilter selects stored cars. Zero fields do not filter.
type CarFilter struct {
	Make      string
	Model     string
	Color     string
	Plate     string // substring match
	StartYear *int
	EndYear   *int
	From      *time.Time
	To        *time.Time
	Success   *bool
	Limit     int
	Offset    int
}

// CarUpdate carries the manually corrected fields of a stored car. Nil fields
// are left unchanged.
type CarUpdate struct {
	CapturedAt   *time.Time `json:"captured_at"`
	Year         *int       `json:"year"`
	Make         *string    `json:"make"`
	Model        *string    `json:"model"`
	LicensePlate *string    `json:"license_plate"`
	Color        *string    `json:"color"`
	VIN          *string    `json:"vin"`
	Latitude     *float64   `json:"latitude"`
	Longitude    *float64   `json:"longitude"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

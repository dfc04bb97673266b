package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"plate-resolver/internal/domain/plate"
	"plate-resolver/internal/repository"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

const (
	DefaultListLimit = 500
	MaxListLimit     = 1000
	minModelYear     = 1886
)

// CarStore is the storage the service reads and corrects.
type CarStore interface {
	GetCar(ctx context.Context, id int64) (*repository.Car, error)
	ListCars(ctx context.Context, f plate.CarFilter) ([]repository.Car, error)
	FirstLocation(ctx context.Context) (*plate.Location, error)
	DistinctMakes(ctx context.Context) ([]string, error)
	DistinctModels(ctx context.Context, carMake string) ([]string, error)
	DistinctYears(ctx context.Context) ([]int, error)
	UpdateCar(ctx context.Context, id int64, u plate.CarUpdate) (int64, error)
	DeleteCar(ctx context.Context, id int64) (int64, error)
}

type CarService struct {
	repo CarStore
	log  zerolog.Logger
	now  func() time.Time
}

func NewCarService(repo CarStore, log zerolog.Logger) *CarService {
	return &CarService{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// ListQuery holds the raw list filters as they arrive from a request.
type ListQuery struct {
	Make      string
	Model     string
	Color     string
	Plate     string
	StartYear string
	EndYear   string
	StartDate string
	EndDate   string
	Success   string
	Limit     int
	Offset    int
}

func (s *CarService) ListCars(ctx context.Context, q ListQuery) ([]CarInfo, error) {
	f := plate.CarFilter{
		Make:   strings.TrimSpace(q.Make),
		Model:  strings.TrimSpace(q.Model),
		Color:  strings.TrimSpace(q.Color),
		Plate:  plate.Clean(q.Plate),
		Limit:  q.Limit,
		Offset: q.Offset,
	}

	var err error
	if f.StartYear, err = parseYear(q.StartYear, "start_year"); err != nil {
		return nil, err
	}
	if f.EndYear, err = parseYear(q.EndYear, "end_year"); err != nil {
		return nil, err
	}
	if f.StartYear != nil && f.EndYear != nil && *f.StartYear > *f.EndYear {
		return nil, fmt.Errorf("%w: start_year is after end_year", ErrInvalidInput)
	}
	if f.From, err = parseDate(q.StartDate, "start_date", false); err != nil {
		return nil, err
	}
	if f.To, err = parseDate(q.EndDate, "end_date", true); err != nil {
		return nil, err
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, fmt.Errorf("%w: start_date is after end_date", ErrInvalidInput)
	}
	switch strings.ToLower(strings.TrimSpace(q.Success)) {
	case "":
	case "true", "1":
		f.Success = boolPtr(true)
	case "false", "0":
		f.Success = boolPtr(false)
	default:
		return nil, fmt.Errorf("%w: invalid success value", ErrInvalidInput)
	}

	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	cars, err := s.repo.ListCars(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list cars: %w", err)
	}

	result := make([]CarInfo, 0, len(cars))
	for _, c := range cars {
		result = append(result, toCarInfo(c))
	}
	return result, nil
}

func (s *CarService) GetCar(ctx context.Context, id int64) (*CarInfo, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: id must be positive", ErrInvalidInput)
	}
	car, err := s.repo.GetCar(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get car: %w", err)
	}
	if car == nil {
		return nil, fmt.Errorf("%w: car %d", ErrNotFound, id)
	}
	info := toCarInfo(*car)
	return &info, nil
}

// FirstLocation is where the map view starts; (0, 0) when no car has coordinates.
func (s *CarService) FirstLocation(ctx context.Context) (plate.Location, error) {
	loc, err := s.repo.FirstLocation(ctx)
	if err != nil {
		return plate.Location{}, fmt.Errorf("failed to get first location: %w", err)
	}
	if loc == nil {
		return plate.Location{}, nil
	}
	return *loc, nil
}

func (s *CarService) Makes(ctx context.Context) ([]string, error) {
	makes, err := s.repo.DistinctMakes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list makes: %w", err)
	}
	return nonNil(makes), nil
}

func (s *CarService) Models(ctx context.Context, carMake string) ([]string, error) {
	models, err := s.repo.DistinctModels(ctx, strings.TrimSpace(carMake))
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return nonNil(models), nil
}

func (s *CarService) Years(ctx context.Context) ([]int, error) {
	years, err := s.repo.DistinctYears(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list years: %w", err)
	}
	if years == nil {
		years = []int{}
	}
	return years, nil
}

func (s *CarService) UpdateCar(ctx context.Context, id int64, u plate.CarUpdate) error {
	if id <= 0 {
		return fmt.Errorf("%w: id must be positive", ErrInvalidInput)
	}
	if err := s.validateUpdate(&u); err != nil {
		return err
	}

	n, err := s.repo.UpdateCar(ctx, id, u)
	if err != nil {
		s.log.Error().Err(err).Int64("car_id", id).Msg("failed to update car")
		return fmt.Errorf("failed to update car: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: car %d", ErrNotFound, id)
	}

	s.log.Info().Int64("car_id", id).Msg("car updated")
	return nil
}

func (s *CarService) DeleteCar(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: id must be positive", ErrInvalidInput)
	}
	n, err := s.repo.DeleteCar(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Int64("car_id", id).Msg("failed to delete car")
		return fmt.Errorf("failed to delete car: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: car %d", ErrNotFound, id)
	}

	s.log.Info().Int64("car_id", id).Msg("car deleted")
	return nil
}

func (s *CarService) validateUpdate(u *plate.CarUpdate) error {
	if *u == (plate.CarUpdate{}) {
		return fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if u.LicensePlate != nil {
		cleaned := plate.Clean(*u.LicensePlate)
		if cleaned == "" {
			return fmt.Errorf("%w: license_plate cannot be empty after normalization", ErrInvalidInput)
		}
		u.LicensePlate = &cleaned
	}
	if u.Year != nil {
		if *u.Year < minModelYear || *u.Year > s.now().Year()+1 {
			return fmt.Errorf("%w: year %d out of range", ErrInvalidInput, *u.Year)
		}
	}
	if u.VIN != nil {
		vin := strings.ToUpper(strings.TrimSpace(*u.VIN))
		u.VIN = &vin
	}
	if u.Latitude != nil && (*u.Latitude < -90 || *u.Latitude > 90) {
		return fmt.Errorf("%w: latitude out of range", ErrInvalidInput)
	}
	if u.Longitude != nil && (*u.Longitude < -180 || *u.Longitude > 180) {
		return fmt.Errorf("%w: longitude out of range", ErrInvalidInput)
	}
	return nil
}

func parseYear(s, field string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", ErrInvalidInput, field)
	}
	return &y, nil
}

// parseDate accepts RFC 3339 or a bare date; a bare end date covers the whole day.
func parseDate(s, field string, endOfDay bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s format", ErrInvalidInput, field)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func boolPtr(b bool) *bool { return &b }

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type CarInfo struct {
	ID             int64      `json:"id"`
	RunID          string     `json:"run_id"`
	CapturedAt     *time.Time `json:"date_time"`
	Year           *int       `json:"year"`
	Make           *string    `json:"make"`
	Model          *string    `json:"model"`
	LicensePlate   string     `json:"license_plate"`
	Color          *string    `json:"color"`
	VIN            *string    `json:"vin"`
	Latitude       *float64   `json:"latitude"`
	Longitude      *float64   `json:"longitude"`
	VideoPath      string     `json:"video_path"`
	State          string     `json:"state"`
	SourceURL      *string    `json:"source_url,omitempty"`
	Success        bool       `json:"success"`
	ProcessSeconds float64    `json:"process_seconds"`
	CreatedAt      time.Time  `json:"created_at"`
}

func toCarInfo(c repository.Car) CarInfo {
	return CarInfo{
		ID:             c.ID,
		RunID:          c.RunID.String(),
		CapturedAt:     c.CapturedAt,
		Year:           c.Year,
		Make:           c.Make,
		Model:          c.Model,
		LicensePlate:   c.LicensePlate,
		Color:          c.Color,
		VIN:            c.VIN,
		Latitude:       c.Latitude,
		Longitude:      c.Longitude,
		VideoPath:      c.VideoPath,
		State:          c.State,
		SourceURL:      c.SourceURL,
		Success:        c.Success,
		ProcessSeconds: c.ProcessSeconds,
		CreatedAt:      c.CreatedAt,
	}
}

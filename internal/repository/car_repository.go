package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"plate-resolver/internal/domain/plate"
)

type CarRepository struct {
	db *gorm.DB
}

func NewCarRepository(db *gorm.DB) *CarRepository {
	return &CarRepository{db: db}
}

type Car struct {
	ID             int64     `gorm:"primaryKey"`
	RunID          uuid.UUID `gorm:"type:uuid;not null"`
	CapturedAt     *time.Time
	Year           *int
	Make           *string
	Model          *string
	LicensePlate   string `gorm:"not null"`
	Color          *string
	VIN            *string `gorm:"column:vin"`
	Latitude       *float64
	Longitude      *float64
	VideoPath      string `gorm:"not null"`
	State          string `gorm:"not null"`
	SourceURL      *string
	Success        bool
	ProcessSeconds float64
	OraclePayload  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt      time.Time
}

func (r *CarRepository) CreateCar(ctx context.Context, car *plate.Car) error {
	row := Car{
		RunID:          car.RunID,
		CapturedAt:     car.CapturedAt,
		LicensePlate:   car.LicensePlate,
		Latitude:       car.Latitude,
		Longitude:      car.Longitude,
		VideoPath:      car.VideoPath,
		State:          car.Jurisdiction,
		Success:        car.Success,
		ProcessSeconds: car.ProcessSeconds,
		CreatedAt:      time.Now(),
	}

	if car.Year != 0 {
		row.Year = &car.Year
	}
	if car.Make != "" {
		row.Make = &car.Make
	}
	if car.Model != "" {
		row.Model = &car.Model
	}
	if car.Color != "" {
		row.Color = &car.Color
	}
	if car.VIN != "" {
		row.VIN = &car.VIN
	}
	if car.SourceURL != "" {
		row.SourceURL = &car.SourceURL
	}
	if len(car.OraclePayload) > 0 {
		row.OraclePayload = datatypes.JSON(car.OraclePayload)
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}

	car.ID = row.ID
	return nil
}

// GetCar returns nil without error when no row has id.
func (r *CarRepository) GetCar(ctx context.Context, id int64) (*Car, error) {
	var car Car
	err := r.db.WithContext(ctx).First(&car, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &car, nil
}

func (r *CarRepository) ListCars(ctx context.Context, f plate.CarFilter) ([]Car, error) {
	query := r.db.WithContext(ctx).Model(&Car{})

	if f.Make != "" {
		query = query.Where("make = ?", f.Make)
	}
	if f.Model != "" {
		query = query.Where("model = ?", f.Model)
	}
	if f.StartYear != nil {
		query = query.Where("year >= ?", *f.StartYear)
	}
	if f.EndYear != nil {
		query = query.Where("year <= ?", *f.EndYear)
	}
	if f.Plate != "" {
		query = query.Where("license_plate LIKE ?", "%"+f.Plate+"%")
	}
	if f.Color != "" {
		query = query.Where("color = ?", f.Color)
	}
	if f.From != nil {
		query = query.Where("captured_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("captured_at <= ?", *f.To)
	}
	if f.Success != nil {
		query = query.Where("success = ?", *f.Success)
	}

	query = query.Order("captured_at DESC NULLS LAST").Order("id DESC")

	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}

	var cars []Car
	err := query.Find(&cars).Error
	return cars, err
}

// FirstLocation returns the coordinates of the oldest car that has them, or
// nil when none does.
func (r *CarRepository) FirstLocation(ctx context.Context) (*plate.Location, error) {
	var car Car
	err := r.db.WithContext(ctx).
		Select("latitude", "longitude").
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Order("id ASC").
		Take(&car).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plate.Location{Latitude: *car.Latitude, Longitude: *car.Longitude}, nil
}

func (r *CarRepository) DistinctMakes(ctx context.Context) ([]string, error) {
	var makes []string
	err := r.db.WithContext(ctx).
		Model(&Car{}).
		Distinct("make").
		Where("make IS NOT NULL").
		Order("make").
		Pluck("make", &makes).Error
	return makes, err
}

// DistinctModels lists known models, restricted to carMake when it is not empty.
func (r *CarRepository) DistinctModels(ctx context.Context, carMake string) ([]string, error) {
	query := r.db.WithContext(ctx).
		Model(&Car{}).
		Distinct("model").
		Where("model IS NOT NULL")
	if carMake != "" {
		query = query.Where("make = ?", carMake)
	}

	var models []string
	err := query.Order("model").Pluck("model", &models).Error
	return models, err
}

func (r *CarRepository) DistinctYears(ctx context.Context) ([]int, error) {
	var years []int
	err := r.db.WithContext(ctx).
		Model(&Car{}).
		Distinct("year").
		Where("year IS NOT NULL").
		Order("year").
		Pluck("year", &years).Error
	return years, err
}

// UpdateCar applies the non-nil fields of u and reports how many rows changed.
func (r *CarRepository) UpdateCar(ctx context.Context, id int64, u plate.CarUpdate) (int64, error) {
	fields := map[string]interface{}{}
	if u.CapturedAt != nil {
		fields["captured_at"] = *u.CapturedAt
	}
	if u.Year != nil {
		fields["year"] = *u.Year
	}
	if u.Make != nil {
		fields["make"] = *u.Make
	}
	if u.Model != nil {
		fields["model"] = *u.Model
	}
	if u.LicensePlate != nil {
		fields["license_plate"] = *u.LicensePlate
	}
	if u.Color != nil {
		fields["color"] = *u.Color
	}
	if u.VIN != nil {
		fields["vin"] = *u.VIN
	}
	if u.Latitude != nil {
		fields["latitude"] = *u.Latitude
	}
	if u.Longitude != nil {
		fields["longitude"] = *u.Longitude
	}
	if len(fields) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Model(&Car{}).
		Where("id = ?", id).
		Updates(fields)
	return result.RowsAffected, result.Error
}

func (r *CarRepository) DeleteCar(ctx context.Context, id int64) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&Car{}, id)
	return result.RowsAffected, result.Error
}

package repository

import (
	"errors"

	"anprserver/internal/models"
)

// ErrNotFound is returned when a detection id does not exist.
var ErrNotFound = errors.New("detection not found")

// DetectionRepository defines the interface for detection history operations.
type DetectionRepository interface {
	// Create operations
	Insert(det *models.Detection) (int64, error)

	// Read operations
	GetAll(filter *models.HistoryFilter) ([]models.Detection, error)
	GetByID(id int64) (*models.Detection, error)
	Statistics() (*models.Stats, error)
	DailyStats(days int) ([]models.DailyStat, error)

	// Delete operations
	PurgeOlderThan(days int) (int64, error)
	DeleteAll() error
}

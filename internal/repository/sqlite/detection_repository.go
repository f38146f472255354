package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"anprserver/internal/models"
	"anprserver/internal/repository"
)

// timeLayout is the stored timestamp format. SQLite's date() understands it,
// which the calendar-date filters and daily aggregates rely on.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// Insert adds a new detection record and returns its assigned id.
// A zero timestamp is filled with the current UTC time.
func (r *DetectionRepository) Insert(det *models.Detection) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	if det.Timestamp.IsZero() {
		det.Timestamp = time.Now().UTC()
	}
	det.NumPlates = len(det.Plates)

	plates, err := json.Marshal(orEmptyStrings(det.Plates))
	if err != nil {
		return 0, fmt.Errorf("failed to encode plates: %w", err)
	}
	confidences, err := json.Marshal(orEmptyFloats(det.Confidences))
	if err != nil {
		return 0, fmt.Errorf("failed to encode confidences: %w", err)
	}
	bboxes, err := json.Marshal(orEmptyBoxes(det.BBoxes))
	if err != nil {
		return 0, fmt.Errorf("failed to encode bboxes: %w", err)
	}

	result, err := r.db.Conn().Exec(`
		INSERT INTO detections (
			timestamp, num_plates, plates, confidences, bboxes,
			processing_time, detector_time, ocr_time,
			image_path, thumbnail_path, success
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, det.Timestamp.UTC().Format(timeLayout), det.NumPlates, string(plates),
		string(confidences), string(bboxes),
		det.ProcessingTime, det.DetectorTime, det.OCRTime,
		det.ImagePath, det.ThumbnailPath, boolToInt(det.Success))
	if err != nil {
		return 0, fmt.Errorf("failed to insert detection: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted id: %w", err)
	}
	det.ID = id
	return id, nil
}

// GetAll retrieves detection history newest-first with optional inclusive
// calendar-date bounds.
func (r *DetectionRepository) GetAll(filter *models.HistoryFilter) ([]models.Detection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	if filter == nil {
		filter = &models.HistoryFilter{}
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := "SELECT id, timestamp, num_plates, plates, confidences, bboxes, " +
		"processing_time, detector_time, ocr_time, image_path, thumbnail_path, success " +
		"FROM detections WHERE 1=1"
	args := []interface{}{}

	if filter.DateFrom != "" {
		query += " AND date(timestamp) >= ?"
		args = append(args, filter.DateFrom)
	}
	if filter.DateTo != "" {
		query += " AND date(timestamp) <= ?"
		args = append(args, filter.DateTo)
	}

	query += " ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var detections []models.Detection
	for rows.Next() {
		det, err := scanDetection(rows)
		if err != nil {
			return nil, err
		}
		detections = append(detections, *det)
	}
	return detections, rows.Err()
}

// GetByID retrieves a specific detection or repository.ErrNotFound.
func (r *DetectionRepository) GetByID(id int64) (*models.Detection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`
		SELECT id, timestamp, num_plates, plates, confidences, bboxes,
		       processing_time, detector_time, ocr_time,
		       image_path, thumbnail_path, success
		FROM detections WHERE id = ?
	`, id)

	det, err := scanDetection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return det, nil
}

// Statistics computes aggregates over the whole history. Means are 0 when no
// records exist. The mean confidence is taken across all individual plate
// confidences, not per-record averages.
func (r *DetectionRepository) Statistics() (*models.Stats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	conn := r.db.Conn()
	stats := &models.Stats{}

	var totalPlates, avgTime sql.NullFloat64
	err := conn.QueryRow(`
		SELECT COUNT(*), SUM(num_plates), AVG(processing_time) FROM detections
	`).Scan(&stats.TotalDetections, &totalPlates, &avgTime)
	if err != nil {
		return nil, fmt.Errorf("failed to query statistics: %w", err)
	}
	stats.TotalPlatesDetected = int(totalPlates.Float64)
	stats.AvgProcessingTime = round(avgTime.Float64, 4)

	rows, err := conn.Query(`SELECT confidences FROM detections WHERE confidences IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to query confidences: %w", err)
	}
	defer rows.Close()

	var sum float64
	var count int
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan confidences: %w", err)
		}
		var confs []float64
		if err := json.Unmarshal([]byte(raw), &confs); err != nil {
			continue
		}
		for _, c := range confs {
			sum += c
			count++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if count > 0 {
		stats.AvgConfidence = round(sum/float64(count), 2)
	}

	today := time.Now().UTC().Format("2006-01-02")
	err = conn.QueryRow(`SELECT COUNT(*) FROM detections WHERE date(timestamp) = ?`, today).
		Scan(&stats.TodayCount)
	if err != nil {
		return nil, fmt.Errorf("failed to query today count: %w", err)
	}

	var successCount int
	err = conn.QueryRow(`SELECT COUNT(*) FROM detections WHERE success = 1`).Scan(&successCount)
	if err != nil {
		return nil, fmt.Errorf("failed to query success count: %w", err)
	}
	if stats.TotalDetections > 0 {
		stats.SuccessRate = round(float64(successCount)/float64(stats.TotalDetections)*100, 2)
	}

	return stats, nil
}

// DailyStats returns per-day aggregates for the last N days including today,
// newest day first. Days without records are omitted.
func (r *DetectionRepository) DailyStats(days int) ([]models.DailyStat, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	if days <= 0 {
		return []models.DailyStat{}, nil
	}
	startDate := time.Now().UTC().AddDate(0, 0, -(days - 1)).Format("2006-01-02")

	rows, err := r.db.Conn().Query(`
		SELECT date(timestamp) as day,
		       COUNT(*),
		       SUM(num_plates),
		       AVG(processing_time)
		FROM detections
		WHERE date(timestamp) >= ?
		GROUP BY date(timestamp)
		ORDER BY day DESC
	`, startDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	stats := []models.DailyStat{}
	for rows.Next() {
		var stat models.DailyStat
		var totalPlates sql.NullInt64
		var avgTime sql.NullFloat64
		if err := rows.Scan(&stat.Date, &stat.Count, &totalPlates, &avgTime); err != nil {
			return nil, fmt.Errorf("failed to scan daily stat: %w", err)
		}
		stat.TotalPlates = int(totalPlates.Int64)
		stat.AvgTime = round(avgTime.Float64, 4)
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// PurgeOlderThan deletes records older than now minus the given number of
// days and reports how many were removed. Irreversible.
func (r *DetectionRepository) PurgeOlderThan(days int) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(timeLayout)
	result, err := r.db.Conn().Exec(`DELETE FROM detections WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge detections: %w", err)
	}
	return result.RowsAffected()
}

// DeleteAll removes every detection record. Irreversible.
func (r *DetectionRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections`); err != nil {
		return fmt.Errorf("failed to clear detections: %w", err)
	}
	return nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDetection(s scanner) (*models.Detection, error) {
	var det models.Detection
	var ts string
	var plates, confidences, bboxes sql.NullString
	var imagePath, thumbnailPath sql.NullString
	var success int

	err := s.Scan(&det.ID, &ts, &det.NumPlates, &plates, &confidences, &bboxes,
		&det.ProcessingTime, &det.DetectorTime, &det.OCRTime,
		&imagePath, &thumbnailPath, &success)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan detection: %w", err)
	}

	det.Timestamp, err = time.Parse(timeLayout, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp %q: %w", ts, err)
	}

	det.Plates = []string{}
	det.Confidences = []float64{}
	det.BBoxes = [][]int{}
	if plates.Valid {
		_ = json.Unmarshal([]byte(plates.String), &det.Plates)
	}
	if confidences.Valid {
		_ = json.Unmarshal([]byte(confidences.String), &det.Confidences)
	}
	if bboxes.Valid {
		_ = json.Unmarshal([]byte(bboxes.String), &det.BBoxes)
	}
	det.ImagePath = imagePath.String
	det.ThumbnailPath = thumbnailPath.String
	det.Success = success != 0

	return &det, nil
}

func orEmptyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyFloats(s []float64) []float64 {
	if s == nil {
		return []float64{}
	}
	return s
}

func orEmptyBoxes(s [][]int) [][]int {
	if s == nil {
		return [][]int{}
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}

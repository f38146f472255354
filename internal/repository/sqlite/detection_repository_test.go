package sqlite_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"anprserver/internal/models"
	"anprserver/internal/repository"
	"anprserver/internal/repository/sqlite"
)

func newTestRepo(t *testing.T) *sqlite.DetectionRepository {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return sqlite.NewDetectionRepository(db)
}

func TestDetectionRepository_InsertAndGet(t *testing.T) {
	repo := newTestRepo(t)

	det := &models.Detection{
		Plates:         []string{"ABC123"},
		Confidences:    []float64{91.5},
		BBoxes:         [][]int{{10, 20, 110, 60}},
		ProcessingTime: 0.42,
		DetectorTime:   0.3,
		OCRTime:        0.1,
		ImagePath:      "/results/detection_x.jpg",
		ThumbnailPath:  "/results/thumb_x.jpg",
		Success:        true,
	}

	id, err := repo.Insert(det)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id <= 0 {
		t.Fatalf("Expected positive id, got %d", id)
	}

	got, err := repo.GetByID(id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.NumPlates != 1 || len(got.Plates) != 1 || got.Plates[0] != "ABC123" {
		t.Errorf("Plates mismatch: %+v", got.Plates)
	}
	if len(got.Confidences) != 1 || got.Confidences[0] != 91.5 {
		t.Errorf("Confidences mismatch: %+v", got.Confidences)
	}
	if len(got.BBoxes) != 1 || len(got.BBoxes[0]) != 4 ||
		got.BBoxes[0][0] != 10 || got.BBoxes[0][1] != 20 ||
		got.BBoxes[0][2] != 110 || got.BBoxes[0][3] != 60 {
		t.Errorf("BBoxes mismatch: %+v", got.BBoxes)
	}
	if got.ProcessingTime != 0.42 {
		t.Errorf("ProcessingTime mismatch: %v", got.ProcessingTime)
	}
	if !got.Success {
		t.Error("Expected success flag")
	}

	stats, err := repo.Statistics()
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	if stats.TotalPlatesDetected != 1 {
		t.Errorf("Expected total_plates_detected 1, got %d", stats.TotalPlatesDetected)
	}
}

func TestDetectionRepository_GetByID_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetByID(42)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDetectionRepository_IdentifiersIncrease(t *testing.T) {
	repo := newTestRepo(t)

	base := time.Now().UTC().Add(-time.Minute)
	var prev int64
	for i := 0; i < 5; i++ {
		id, err := repo.Insert(&models.Detection{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Success:   true,
		})
		if err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
		if id <= prev {
			t.Errorf("Identifiers not strictly increasing: %d after %d", id, prev)
		}
		prev = id
	}

	history, err := repo.GetAll(&models.HistoryFilter{Limit: 10})
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(history) != 5 {
		t.Fatalf("Expected 5 records, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].ID >= history[i-1].ID {
			t.Errorf("History not in reverse-creation order: %d before %d",
				history[i-1].ID, history[i].ID)
		}
	}
}

func TestDetectionRepository_ListPagination(t *testing.T) {
	repo := newTestRepo(t)

	base := time.Now().UTC().Add(-time.Minute)
	for i := 0; i < 10; i++ {
		if _, err := repo.Insert(&models.Detection{
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
	}

	page, err := repo.GetAll(&models.HistoryFilter{Limit: 3, Offset: 2})
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(page))
	}
	// Newest-first: offset 2 skips the two most recent records.
	if page[0].ID != 8 {
		t.Errorf("Expected first record id 8, got %d", page[0].ID)
	}
}

func TestDetectionRepository_DateFilters(t *testing.T) {
	repo := newTestRepo(t)

	now := time.Now().UTC()
	days := []time.Time{now.AddDate(0, 0, -3), now.AddDate(0, 0, -1), now}
	for _, ts := range days {
		if _, err := repo.Insert(&models.Detection{Timestamp: ts}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	from := now.AddDate(0, 0, -1).Format("2006-01-02")
	filtered, err := repo.GetAll(&models.HistoryFilter{DateFrom: from})
	if err != nil {
		t.Fatalf("GetAll with date_from failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("Expected 2 records from %s, got %d", from, len(filtered))
	}

	to := now.AddDate(0, 0, -1).Format("2006-01-02")
	filtered, err = repo.GetAll(&models.HistoryFilter{DateTo: to})
	if err != nil {
		t.Fatalf("GetAll with date_to failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("Expected 2 records up to %s, got %d", to, len(filtered))
	}

	// Inclusive on both ends, compared by calendar date.
	day := now.AddDate(0, 0, -1).Format("2006-01-02")
	filtered, err = repo.GetAll(&models.HistoryFilter{DateFrom: day, DateTo: day})
	if err != nil {
		t.Fatalf("GetAll with both bounds failed: %v", err)
	}
	if len(filtered) != 1 {
		t.Errorf("Expected 1 record on %s, got %d", day, len(filtered))
	}
}

func TestDetectionRepository_Statistics_Empty(t *testing.T) {
	repo := newTestRepo(t)

	stats, err := repo.Statistics()
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	if stats.TotalDetections != 0 || stats.TotalPlatesDetected != 0 {
		t.Errorf("Expected zero counts, got %+v", stats)
	}
	if stats.AvgProcessingTime != 0 || stats.AvgConfidence != 0 || stats.SuccessRate != 0 {
		t.Errorf("Expected zero means on empty store, got %+v", stats)
	}
}

func TestDetectionRepository_Statistics(t *testing.T) {
	repo := newTestRepo(t)

	records := []*models.Detection{
		{
			Plates:         []string{"AAA111", "BBB222"},
			Confidences:    []float64{90, 100},
			BBoxes:         [][]int{{0, 0, 10, 10}, {20, 20, 30, 30}},
			ProcessingTime: 0.4,
			Success:        true,
		},
		{
			Plates:         []string{"CCC333"},
			Confidences:    []float64{80},
			BBoxes:         [][]int{{0, 0, 10, 10}},
			ProcessingTime: 0.2,
			Success:        true,
		},
		{
			ProcessingTime: 0.6,
			Success:        false,
		},
	}
	for i, det := range records {
		if _, err := repo.Insert(det); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
	}

	stats, err := repo.Statistics()
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}

	if stats.TotalDetections != 3 {
		t.Errorf("Expected 3 detections, got %d", stats.TotalDetections)
	}
	if stats.TotalPlatesDetected != 3 {
		t.Errorf("Expected 3 plates, got %d", stats.TotalPlatesDetected)
	}
	if stats.AvgProcessingTime != 0.4 {
		t.Errorf("Expected avg processing time 0.4, got %v", stats.AvgProcessingTime)
	}
	// Mean over all individual plate confidences: (90+100+80)/3.
	if stats.AvgConfidence != 90 {
		t.Errorf("Expected avg confidence 90, got %v", stats.AvgConfidence)
	}
	if stats.SuccessRate != 66.67 {
		t.Errorf("Expected success rate 66.67, got %v", stats.SuccessRate)
	}
	if stats.TodayCount != 3 {
		t.Errorf("Expected today count 3, got %d", stats.TodayCount)
	}
}

func TestDetectionRepository_DailyStats_Empty(t *testing.T) {
	repo := newTestRepo(t)

	stats, err := repo.DailyStats(1)
	if err != nil {
		t.Fatalf("DailyStats failed: %v", err)
	}
	if len(stats) != 0 {
		t.Errorf("Expected empty daily stats, got %d entries", len(stats))
	}
}

func TestDetectionRepository_DailyStats(t *testing.T) {
	repo := newTestRepo(t)

	now := time.Now().UTC()
	inserts := []struct {
		ts     time.Time
		plates []string
	}{
		{now, []string{"AAA111"}},
		{now, []string{"BBB222", "CCC333"}},
		{now.AddDate(0, 0, -1), []string{"DDD444"}},
		{now.AddDate(0, 0, -5), []string{"EEE555"}}, // outside the window
	}
	for i, in := range inserts {
		confs := make([]float64, len(in.plates))
		if _, err := repo.Insert(&models.Detection{
			Timestamp:   in.ts,
			Plates:      in.plates,
			Confidences: confs,
			Success:     true,
		}); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
	}

	stats, err := repo.DailyStats(2)
	if err != nil {
		t.Fatalf("DailyStats failed: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("Expected 2 days, got %d", len(stats))
	}
	if stats[0].Date != now.Format("2006-01-02") {
		t.Errorf("Expected newest day first, got %s", stats[0].Date)
	}
	if stats[0].Count != 2 || stats[0].TotalPlates != 3 {
		t.Errorf("Today aggregate wrong: %+v", stats[0])
	}
	if stats[1].Count != 1 || stats[1].TotalPlates != 1 {
		t.Errorf("Yesterday aggregate wrong: %+v", stats[1])
	}
}

func TestDetectionRepository_PurgeOlderThan(t *testing.T) {
	repo := newTestRepo(t)

	now := time.Now().UTC()
	for _, ts := range []time.Time{now.AddDate(0, 0, -40), now.AddDate(0, 0, -10), now} {
		if _, err := repo.Insert(&models.Detection{Timestamp: ts}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	removed, err := repo.PurgeOlderThan(30)
	if err != nil {
		t.Fatalf("PurgeOlderThan failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 removed, got %d", removed)
	}

	stats, err := repo.Statistics()
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	if stats.TotalDetections != 2 {
		t.Errorf("Expected 2 remaining, got %d", stats.TotalDetections)
	}
}

func TestDetectionRepository_DeleteAll(t *testing.T) {
	repo := newTestRepo(t)

	for i := 0; i < 3; i++ {
		if _, err := repo.Insert(&models.Detection{Success: true}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	if err := repo.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}

	stats, err := repo.Statistics()
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	if stats.TotalDetections != 0 {
		t.Errorf("Expected empty store after DeleteAll, got %d", stats.TotalDetections)
	}
}

func TestDetectionRepository_ConcurrentInserts(t *testing.T) {
	repo := newTestRepo(t)

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := repo.Insert(&models.Detection{Success: true})
			if err != nil {
				t.Errorf("Concurrent insert failed: %v", err)
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	stats, err := repo.Statistics()
	if err != nil {
		t.Fatalf("Statistics failed: %v", err)
	}
	if stats.TotalDetections != 10 {
		t.Errorf("Expected 10 records, got %d", stats.TotalDetections)
	}
}

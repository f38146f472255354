package handlers

import (
	"math"
	"net/http"
	"time"

	"anprserver/internal/logger"
	"anprserver/internal/repository"
)

// GetStatsHandler returns aggregate statistics plus server uptime.
func GetStatsHandler(repo repository.DetectionRepository, startTime time.Time, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := repo.Statistics()
		if err != nil {
			log.Error("Failed to compute statistics: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to compute statistics")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"total_detections":      stats.TotalDetections,
			"total_plates_detected": stats.TotalPlatesDetected,
			"avg_processing_time":   stats.AvgProcessingTime,
			"avg_confidence":        stats.AvgConfidence,
			"today_count":           stats.TodayCount,
			"success_rate":          stats.SuccessRate,
			"uptime":                math.Round(time.Since(startTime).Seconds()*100) / 100,
		})
	}
}

// GetDailyStatsHandler returns per-day aggregates for the last N days.
func GetDailyStatsHandler(repo repository.DetectionRepository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := queryInt(r, "days", 7)

		stats, err := repo.DailyStats(days)
		if err != nil {
			log.Error("Failed to compute daily statistics: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to compute daily statistics")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"days":  days,
			"stats": stats,
		})
	}
}

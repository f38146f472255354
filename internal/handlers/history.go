package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"anprserver/internal/logger"
	"anprserver/internal/models"
	"anprserver/internal/repository"
)

// GetHistoryHandler lists detection history, newest first, with optional
// limit/offset and inclusive calendar-date bounds.
func GetHistoryHandler(repo repository.DetectionRepository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := &models.HistoryFilter{
			Limit:    queryInt(r, "limit", 100),
			Offset:   queryInt(r, "offset", 0),
			DateFrom: r.URL.Query().Get("date_from"),
			DateTo:   r.URL.Query().Get("date_to"),
		}

		history, err := repo.GetAll(filter)
		if err != nil {
			log.Error("Failed to query history: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to query history")
			return
		}
		if history == nil {
			history = []models.Detection{}
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"count":   len(history),
			"results": history,
		})
	}
}

// GetDetectionHandler returns a single detection by id.
func GetDetectionHandler(repo repository.DetectionRepository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid detection id")
			return
		}

		detection, err := repo.GetByID(id)
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "detection not found")
			return
		}
		if err != nil {
			log.Error("Failed to load detection %d: %v", id, err)
			writeError(w, http.StatusInternalServerError, "failed to load detection")
			return
		}

		writeJSON(w, http.StatusOK, detection)
	}
}

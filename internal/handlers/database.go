package handlers

import (
	"net/http"

	"anprserver/internal/logger"
	"anprserver/internal/repository"
	"anprserver/internal/services/artifacts"
	"anprserver/internal/services/logstream"
)

// ClearDatabaseHandler deletes every detection record and all saved result
// images. Irreversible.
func ClearDatabaseHandler(repo repository.DetectionRepository, art *artifacts.Manager, broadcaster *logstream.Broadcaster, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := repo.DeleteAll(); err != nil {
			log.Error("Failed to clear database: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to clear database")
			return
		}

		if err := art.ClearAll(); err != nil {
			log.Error("Failed to clear result images: %v", err)
		}

		broadcaster.Emit(logstream.LevelWarning, "Database cleared - all history deleted")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "All detection history and images deleted",
		})
	}
}

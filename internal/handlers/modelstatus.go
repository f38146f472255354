package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"anprserver/internal/anpr"
	"anprserver/internal/config"
)

type modelStatus struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Downloaded  bool   `json:"downloaded"`
	Size        int64  `json:"size"`
	Current     bool   `json:"current"`
}

// ModelsStatusHandler reports the model catalog, which model files are
// present on disk, and the active selection.
func ModelsStatusHandler(engines *anpr.State, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active := baseEngineConfig(engines, cfg)

		detectors := make([]modelStatus, 0, len(anpr.DetectorModels))
		for _, info := range anpr.DetectorModels {
			detectors = append(detectors, fileStatus(info,
				filepath.Join(cfg.ModelsDirectory, anpr.DetectorModelFile(info.Name)),
				info.Name == active.DetectorModel))
		}

		ocrModels := make([]modelStatus, 0, len(anpr.OCRModels))
		for _, info := range anpr.OCRModels {
			ocrModels = append(ocrModels, fileStatus(info,
				filepath.Join(cfg.ModelsDirectory, anpr.OCRModelFile(info.Name)),
				info.Name == active.OCRModel))
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"detector_models":  detectors,
			"ocr_models":       ocrModels,
			"regions":          anpr.Regions,
			"models_directory": cfg.ModelsDirectory,
			"current_detector": active.DetectorModel,
			"current_ocr":      active.OCRModel,
			"current_region":   active.Region,
			"current_backend":  active.Backend,
		})
	}
}

func fileStatus(info anpr.ModelInfo, path string, current bool) modelStatus {
	status := modelStatus{
		Name:        info.Name,
		Description: info.Description,
		Current:     current,
	}
	if fi, err := os.Stat(path); err == nil {
		status.Downloaded = true
		status.Size = fi.Size()
	}
	return status
}

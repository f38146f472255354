package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"anprserver/internal/anpr"
	"anprserver/internal/config"
	"anprserver/internal/logger"
	"anprserver/internal/services/logstream"
)

type credentialsRequest struct {
	Username  string `json:"username"`
	SerialKey string `json:"serial_key"`
	Signature string `json:"signature"`
}

type modelsUpdateRequest struct {
	DetectorModel string `json:"detector_model"`
	OCRModel      string `json:"ocr_model"`
	Region        string `json:"region"`
}

// ConfigureHandler swaps in a new credential triple. The engine is rebuilt
// with the new credentials; on failure the previous engine keeps serving.
func ConfigureHandler(engines *anpr.State, cfg *config.Config, broadcaster *logstream.Broadcaster, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		if req.Username == "" || req.SerialKey == "" || req.Signature == "" {
			writeError(w, http.StatusBadRequest, "all fields are required")
			return
		}

		next := baseEngineConfig(engines, cfg)
		next.Credentials = anpr.Credentials{
			Username:  req.Username,
			SerialKey: req.SerialKey,
			Signature: req.Signature,
		}

		if err := engines.Reconfigure(next); err != nil {
			log.Error("Credential reconfiguration failed: %v", err)
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("invalid credentials or model loading failed: %v", err))
			return
		}

		broadcaster.Emit(logstream.LevelSuccess, "Credentials configured - engine loaded")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "Credentials validated and engine loaded successfully",
		})
	}
}

// UpdateModelsHandler swaps detector model, OCR model and region. Requires
// working credentials; on failure the previous engine keeps serving.
func UpdateModelsHandler(engines *anpr.State, cfg *config.Config, broadcaster *logstream.Broadcaster, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req modelsUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		if req.DetectorModel == "" || req.OCRModel == "" || req.Region == "" {
			writeError(w, http.StatusBadRequest, "all fields are required")
			return
		}
		if !engines.Valid() {
			writeError(w, http.StatusBadRequest, "credentials not configured, configure credentials first")
			return
		}
		if !anpr.KnownRegion(req.Region) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown region %q", req.Region))
			return
		}

		next := baseEngineConfig(engines, cfg)
		next.DetectorModel = req.DetectorModel
		next.OCRModel = req.OCRModel
		next.Region = req.Region

		if err := engines.Reconfigure(next); err != nil {
			log.Error("Model reconfiguration failed: %v", err)
			writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to load models: %v", err))
			return
		}

		broadcaster.Emit(logstream.LevelSuccess, "Models updated: %s + %s (%s)",
			req.DetectorModel, req.OCRModel, req.Region)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": fmt.Sprintf("Models updated: %s + %s (%s)", req.DetectorModel, req.OCRModel, req.Region),
		})
	}
}

// baseEngineConfig is the currently active engine configuration, or the
// startup configuration when no engine has been loaded yet.
func baseEngineConfig(engines *anpr.State, cfg *config.Config) anpr.Config {
	if _, current, valid := engines.Current(); valid {
		return current
	}
	return anpr.Config{
		DetectorModel:       cfg.DetectorModel,
		OCRModel:            cfg.OCRModel,
		Region:              cfg.Region,
		Backend:             cfg.Backend,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		Credentials: anpr.Credentials{
			Username:  cfg.Username,
			SerialKey: cfg.SerialKey,
			Signature: cfg.Signature,
		},
	}
}

package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"anprserver/internal/anpr"
	"anprserver/internal/logger"
	"anprserver/internal/models"
	"anprserver/internal/services/pipeline"
)

// DetectFileHandler processes an uploaded multipart image.
func DetectFileHandler(pl *pipeline.Pipeline, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file, _, err := r.FormFile("image")
		if err != nil {
			writeDetectError(w, http.StatusBadRequest, "missing image file")
			return
		}
		defer file.Close()

		imageBytes, err := io.ReadAll(file)
		if err != nil {
			log.Error("Failed to read uploaded file: %v", err)
			writeDetectError(w, http.StatusBadRequest, "failed to read image file")
			return
		}

		runDetection(w, r, pl, imageBytes, true)
	}
}

// DetectBinaryHandler processes raw image bytes from the request body.
func DetectBinaryHandler(pl *pipeline.Pipeline, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		imageBytes, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("Failed to read request body: %v", err)
			writeDetectError(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		runDetection(w, r, pl, imageBytes, true)
	}
}

// DetectBase64Handler processes a base64 encoded image from a JSON payload.
func DetectBase64Handler(pl *pipeline.Pipeline, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// save_result defaults to true when the field is absent.
		req := models.Base64ImageRequest{SaveResult: true}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeDetectError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}

		imageBytes, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			writeDetectError(w, http.StatusBadRequest, "invalid base64 image")
			return
		}

		runDetection(w, r, pl, imageBytes, req.SaveResult)
	}
}

func runDetection(w http.ResponseWriter, r *http.Request, pl *pipeline.Pipeline, imageBytes []byte, saveArtifacts bool) {
	outcome, err := pl.Process(imageBytes, clientIP(r), saveArtifacts)
	if err != nil {
		writeDetectError(w, detectStatus(err), err.Error())
		return
	}

	results := make([]models.PlateResult, 0, len(outcome.Plates))
	for _, plate := range outcome.Plates {
		results = append(results, models.PlateResult{
			PlateText:           plate.Text,
			Confidence:          plate.OCRConfidence,
			BBox:                plate.BBox,
			DetectionConfidence: plate.DetectionConfidence,
		})
	}

	writeJSON(w, http.StatusOK, models.DetectResponse{
		Success:        true,
		DetectionID:    outcome.DetectionID,
		Timestamp:      outcome.Timestamp.Format(time.RFC3339),
		Results:        results,
		ProcessingTime: outcome.ProcessingTime,
		DetectorTime:   outcome.DetectorTime,
		OCRTime:        outcome.OCRTime,
		ImageURL:       outcome.ImageURL,
	})
}

func detectStatus(err error) int {
	switch {
	case errors.Is(err, anpr.ErrEngineUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, pipeline.ErrDecode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeDetectError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.DetectResponse{
		Success:   false,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Results:   []models.PlateResult{},
		Error:     message,
	})
}

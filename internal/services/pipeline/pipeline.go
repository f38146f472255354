package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"anprserver/internal/anpr"
	"anprserver/internal/models"
	"anprserver/internal/repository"
	"anprserver/internal/services/artifacts"
	"anprserver/internal/services/logstream"

	"gocv.io/x/gocv"
)

// ErrDecode means the raw bytes could not be decoded into an image.
var ErrDecode = errors.New("invalid image format")

// Outcome is the result of one completed pipeline run.
type Outcome struct {
	DetectionID    int64
	Timestamp      time.Time
	Plates         []anpr.Plate
	ProcessingTime float64
	DetectorTime   float64
	OCRTime        float64
	ImageURL       string
	ThumbnailURL   string
	Success        bool
}

// Counters are the running request totals, surfaced by the health endpoint.
type Counters struct {
	Total      uint64 `json:"total_requests"`
	Successful uint64 `json:"successful_requests"`
	Failed     uint64 `json:"failed_requests"`
}

// Pipeline processes one raw image end to end: decode, infer with the
// currently published engine, persist artifacts and the detection record,
// and emit one operational log event.
type Pipeline struct {
	engines   *anpr.State
	store     repository.DetectionRepository
	artifacts *artifacts.Manager
	logs      *logstream.Broadcaster

	total      atomic.Uint64
	successful atomic.Uint64
	failed     atomic.Uint64
}

// New wires a Pipeline.
func New(engines *anpr.State, store repository.DetectionRepository, art *artifacts.Manager, logs *logstream.Broadcaster) *Pipeline {
	return &Pipeline{engines: engines, store: store, artifacts: art, logs: logs}
}

// Process runs the pipeline for one image. It deliberately takes no context:
// once started, detection, persistence and logging run to completion even if
// the original caller gave up. Per invocation there is exactly one store
// append, at most one artifact pair, and exactly one log emission; failures
// before the engine call persist and emit nothing. saveArtifacts lets a
// caller skip the annotated image for this request even when saving is
// globally enabled.
func (p *Pipeline) Process(imageBytes []byte, clientIP string, saveArtifacts bool) (*Outcome, error) {
	p.total.Add(1)

	engine, _, valid := p.engines.Current()
	if !valid {
		p.failed.Add(1)
		p.logs.Emit(logstream.LevelError, "Request from %s - engine not configured", clientIP)
		return nil, anpr.ErrEngineUnavailable
	}

	img, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil || img.Empty() {
		if err == nil {
			img.Close()
		}
		p.failed.Add(1)
		return nil, ErrDecode
	}
	defer img.Close()

	p.logs.Emit(logstream.LevelInfo, "Processing image from %s (%.1f KB)", clientIP, float64(len(imageBytes))/1024)

	start := time.Now()
	result, err := engine.Infer(img)
	totalTime := time.Since(start).Seconds()
	if err != nil {
		p.failed.Add(1)
		p.logs.Emit(logstream.LevelError, "Inference failed for %s: %v", clientIP, err)
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	var imageURL, thumbURL string
	if saveArtifacts && len(result.Plates) > 0 {
		imageURL, thumbURL, err = p.artifacts.Save(img, result.Plates)
		if err != nil {
			// The detection still gets recorded, just without artifacts.
			p.logs.Emit(logstream.LevelWarning, "Failed to save result image: %v", err)
			imageURL, thumbURL = "", ""
		}
	}

	record := recordFromResult(result, totalTime, imageURL, thumbURL)
	if _, err := p.store.Insert(record); err != nil {
		p.failed.Add(1)
		p.logs.Emit(logstream.LevelError, "Failed to store detection: %v", err)
		return nil, fmt.Errorf("failed to store detection: %w", err)
	}

	p.successful.Add(1)
	p.emitSummary(clientIP, result.Plates, totalTime)

	return &Outcome{
		DetectionID:    record.ID,
		Timestamp:      record.Timestamp,
		Plates:         result.Plates,
		ProcessingTime: totalTime,
		DetectorTime:   result.DetectorTime,
		OCRTime:        result.OCRTime,
		ImageURL:       imageURL,
		ThumbnailURL:   thumbURL,
		Success:        len(result.Plates) > 0,
	}, nil
}

// Counters returns a snapshot of the request totals.
func (p *Pipeline) Counters() Counters {
	return Counters{
		Total:      p.total.Load(),
		Successful: p.successful.Load(),
		Failed:     p.failed.Load(),
	}
}

// recordFromResult normalizes the engine result into a detection record.
// This is the single translation point between engine output and the
// internal schema.
func recordFromResult(result *anpr.Result, totalTime float64, imageURL, thumbURL string) *models.Detection {
	plates := make([]string, 0, len(result.Plates))
	confidences := make([]float64, 0, len(result.Plates))
	bboxes := make([][]int, 0, len(result.Plates))
	for _, plate := range result.Plates {
		plates = append(plates, plate.Text)
		confidences = append(confidences, plate.OCRConfidence)
		bboxes = append(bboxes, plate.BBox)
	}

	return &models.Detection{
		Timestamp:      time.Now().UTC(),
		Plates:         plates,
		Confidences:    confidences,
		BBoxes:         bboxes,
		ProcessingTime: totalTime,
		DetectorTime:   result.DetectorTime,
		OCRTime:        result.OCRTime,
		ImagePath:      imageURL,
		ThumbnailPath:  thumbURL,
		Success:        len(result.Plates) > 0,
	}
}

func (p *Pipeline) emitSummary(clientIP string, plates []anpr.Plate, totalTime float64) {
	if len(plates) > 0 {
		texts := make([]string, 0, len(plates))
		for _, plate := range plates {
			texts = append(texts, plate.Text)
		}
		p.logs.Emit(logstream.LevelSuccess, "%s - Detected %d plate(s): %s (%.0fms)",
			clientIP, len(plates), strings.Join(texts, ", "), totalTime*1000)
		return
	}
	p.logs.Emit(logstream.LevelWarning, "%s - No plates detected (%.0fms)", clientIP, totalTime*1000)
}

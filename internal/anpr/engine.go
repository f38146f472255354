package anpr

import (
	"errors"

	"gocv.io/x/gocv"
)

var (
	// ErrEngineUnavailable means no configuration has produced a working engine yet.
	ErrEngineUnavailable = errors.New("anpr engine not available, configure credentials first")
	// ErrInvalidCredentials means the credential triple is missing or incomplete.
	ErrInvalidCredentials = errors.New("invalid or missing credentials")
	// ErrUnknownRegion means the requested region has no vocabulary.
	ErrUnknownRegion = errors.New("unknown region")
)

// Credentials is the triple required to instantiate an engine.
type Credentials struct {
	Username  string
	SerialKey string
	Signature string
}

// Complete reports whether all three credential fields are present.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.SerialKey != "" && c.Signature != ""
}

// Config describes which detector model, OCR model, region vocabulary and
// compute backend an engine runs with. Replacement is always whole-object.
type Config struct {
	DetectorModel       string
	OCRModel            string
	Region              string
	Backend             string
	ConfidenceThreshold float64
	Credentials         Credentials
}

// Plate is one recognized plate produced by an engine.
type Plate struct {
	Text                string
	OCRConfidence       float64 // 0-100
	DetectionConfidence float64 // 0-100
	BBox                []int   // [left, top, right, bottom] pixel coordinates
}

// Result is the outcome of a single inference call.
type Result struct {
	Plates       []Plate
	DetectorTime float64 // seconds
	OCRTime      float64 // seconds
}

// Engine performs plate detection and OCR on an image. Once constructed an
// engine is used read-only, so concurrent Infer calls are safe and a stale
// engine captured before a hot-swap remains usable.
type Engine interface {
	Infer(img gocv.Mat) (*Result, error)

	// SetRegion switches the OCR vocabulary in place. Engines that cannot
	// do this return an error and are rebuilt instead.
	SetRegion(region string) error

	Close() error
}

// Factory constructs an Engine from a configuration.
type Factory func(cfg Config) (Engine, error)

package anpr

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const detectorInputSize = 320

// dnnEngine runs a plate detector network and an OCR network through the
// OpenCV DNN module. The nets are read-only after construction; only the
// region vocabulary is swappable, guarded by its own mutex.
type dnnEngine struct {
	detector      gocv.Net
	ocr           gocv.Net
	confThreshold float64

	regionMu sync.RWMutex
	region   string
	charset  []rune
}

// NewFactory returns a Factory that loads model files from modelsDir.
func NewFactory(modelsDir string) Factory {
	return func(cfg Config) (Engine, error) {
		return newDNNEngine(modelsDir, cfg)
	}
}

func newDNNEngine(modelsDir string, cfg Config) (Engine, error) {
	if !cfg.Credentials.Complete() {
		return nil, ErrInvalidCredentials
	}

	charset, ok := regionCharsets[cfg.Region]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, cfg.Region)
	}

	detectorPath := filepath.Join(modelsDir, DetectorModelFile(cfg.DetectorModel))
	ocrPath := filepath.Join(modelsDir, OCRModelFile(cfg.OCRModel))
	for _, path := range []string{detectorPath, ocrPath} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("model file not found: %s", path)
		}
	}

	detector := gocv.ReadNet(detectorPath, "")
	if detector.Empty() {
		return nil, fmt.Errorf("failed to load detector model %s", cfg.DetectorModel)
	}

	ocr := gocv.ReadNet(ocrPath, "")
	if ocr.Empty() {
		detector.Close()
		return nil, fmt.Errorf("failed to load ocr model %s", cfg.OCRModel)
	}

	for _, net := range []*gocv.Net{&detector, &ocr} {
		if err := configureBackend(net, cfg.Backend); err != nil {
			detector.Close()
			ocr.Close()
			return nil, err
		}
	}

	threshold := cfg.ConfidenceThreshold
	if threshold <= 0 {
		threshold = 0.25
	}

	return &dnnEngine{
		detector:      detector,
		ocr:           ocr,
		confThreshold: threshold,
		region:        cfg.Region,
		charset:       []rune(charset),
	}, nil
}

func configureBackend(net *gocv.Net, backend string) error {
	var (
		errBackend error
		errTarget  error
	)
	switch backend {
	case "cuda":
		errBackend = net.SetPreferableBackend(gocv.NetBackendCUDA)
		errTarget = net.SetPreferableTarget(gocv.NetTargetCUDA)
	default:
		errBackend = net.SetPreferableBackend(gocv.NetBackendDefault)
		errTarget = net.SetPreferableTarget(gocv.NetTargetCPU)
	}
	if errBackend != nil || errTarget != nil {
		return fmt.Errorf("failed to set preferable backend or target for %q", backend)
	}
	return nil
}

// Infer runs detection and then OCR on every detected box, measuring the two
// phases separately.
func (e *dnnEngine) Infer(img gocv.Mat) (*Result, error) {
	if img.Empty() {
		return nil, fmt.Errorf("input image is empty")
	}

	detectStart := time.Now()
	boxes, detConfs, err := e.detectPlates(img)
	detectorTime := time.Since(detectStart).Seconds()
	if err != nil {
		return nil, err
	}

	result := &Result{DetectorTime: detectorTime}

	ocrStart := time.Now()
	for i, box := range boxes {
		text, conf, err := e.recognize(img, box)
		if err != nil {
			continue
		}
		result.Plates = append(result.Plates, Plate{
			Text:                text,
			OCRConfidence:       conf,
			DetectionConfidence: detConfs[i] * 100,
			BBox:                []int{box.Min.X, box.Min.Y, box.Max.X, box.Max.Y},
		})
	}
	result.OCRTime = time.Since(ocrStart).Seconds()

	return result, nil
}

// detectPlates runs the detector net and returns pixel boxes with their
// confidences. Output rows follow the SSD layout of 7 floats per detection.
func (e *dnnEngine) detectPlates(img gocv.Mat) ([]image.Rectangle, []float64, error) {
	blob := gocv.BlobFromImage(img, 1.0/127.5, image.Pt(detectorInputSize, detectorInputSize),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	e.detector.SetInput(blob, "")
	output := e.detector.Forward("")
	defer output.Close()

	var boxes []image.Rectangle
	var confs []float64

	reshaped := output.Reshape(1, output.Total()/7)
	defer reshaped.Close()
	for i := 0; i < reshaped.Rows(); i++ {
		confidence := reshaped.GetFloatAt(i, 2)
		if float64(confidence) < e.confThreshold {
			continue
		}
		left := int(reshaped.GetFloatAt(i, 3) * float32(img.Cols()))
		top := int(reshaped.GetFloatAt(i, 4) * float32(img.Rows()))
		right := int(reshaped.GetFloatAt(i, 5) * float32(img.Cols()))
		bottom := int(reshaped.GetFloatAt(i, 6) * float32(img.Rows()))

		rect := image.Rect(left, top, right, bottom).
			Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
		if rect.Empty() {
			continue
		}
		boxes = append(boxes, rect)
		confs = append(confs, float64(confidence))
	}

	return boxes, confs, nil
}

// recognize crops a detected box and decodes the OCR net output greedily,
// collapsing repeated symbols and skipping the blank index 0.
func (e *dnnEngine) recognize(img gocv.Mat, box image.Rectangle) (string, float64, error) {
	e.regionMu.RLock()
	charset := e.charset
	e.regionMu.RUnlock()

	crop := img.Region(box)
	defer crop.Close()

	blob := gocv.BlobFromImage(crop, 1.0/255.0, image.Pt(128, 32),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	e.ocr.SetInput(blob, "")
	output := e.ocr.Forward("")
	defer output.Close()

	classes := len(charset) + 1 // index 0 is the CTC blank
	steps := output.Total() / classes
	if steps == 0 {
		return "", 0, fmt.Errorf("unexpected ocr output shape")
	}

	scores := output.Reshape(1, steps)
	defer scores.Close()

	var text []rune
	var confSum float64
	prev := -1
	for t := 0; t < scores.Rows(); t++ {
		best := 0
		bestScore := float32(math.Inf(-1))
		for c := 0; c < classes; c++ {
			if s := scores.GetFloatAt(t, c); s > bestScore {
				bestScore = s
				best = c
			}
		}
		if best != 0 && best != prev {
			text = append(text, charset[best-1])
			confSum += float64(bestScore)
		}
		prev = best
	}

	if len(text) == 0 {
		return "", 0, fmt.Errorf("no characters recognized")
	}
	return string(text), round2(confSum / float64(len(text)) * 100), nil
}

// SetRegion swaps the decoding vocabulary in place. The nets are untouched,
// so in-flight Infer calls are unaffected.
func (e *dnnEngine) SetRegion(region string) error {
	charset, ok := regionCharsets[region]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRegion, region)
	}
	e.regionMu.Lock()
	e.region = region
	e.charset = []rune(charset)
	e.regionMu.Unlock()
	return nil
}

func (e *dnnEngine) Close() error {
	if err := e.detector.Close(); err != nil {
		return err
	}
	return e.ocr.Close()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

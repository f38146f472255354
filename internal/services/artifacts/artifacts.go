package artifacts

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"time"

	"anprserver/internal/anpr"
	"anprserver/internal/logger"

	"gocv.io/x/gocv"
)

// thumbWidth is the fixed width of generated thumbnails; height scales to
// preserve the aspect ratio.
const thumbWidth = 400

// Manager renders annotated result images and thumbnails for detections and
// persists them under the results directory.
type Manager struct {
	resultsDir string
	enabled    bool
	logger     *logger.Logger
}

// New creates a Manager and ensures the results directory exists.
func New(resultsDir string, enabled bool, log *logger.Logger) (*Manager, error) {
	if enabled {
		if err := os.MkdirAll(resultsDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create results directory: %w", err)
		}
	}
	return &Manager{resultsDir: resultsDir, enabled: enabled, logger: log}, nil
}

// Enabled reports whether artifact saving is active.
func (m *Manager) Enabled() bool {
	return m.enabled
}

// Save draws a rectangle and label for every plate onto a copy of img and
// writes the annotated image plus a thumbnail. It returns addressable URLs,
// or empty strings when saving is disabled or there are no plates.
// Filenames carry a microsecond timestamp so concurrent requests never
// overwrite each other.
func (m *Manager) Save(img gocv.Mat, plates []anpr.Plate) (string, string, error) {
	if !m.enabled || len(plates) == 0 {
		return "", "", nil
	}

	green := color.RGBA{G: 255}

	annotated := img.Clone()
	defer annotated.Close()

	for _, plate := range plates {
		if len(plate.BBox) != 4 {
			continue
		}
		rect := image.Rect(plate.BBox[0], plate.BBox[1], plate.BBox[2], plate.BBox[3])
		if err := gocv.Rectangle(&annotated, rect, green, 2); err != nil {
			return "", "", fmt.Errorf("failed to draw rectangle: %w", err)
		}

		label := fmt.Sprintf("%s (%.1f%%)", plate.Text, plate.OCRConfidence)
		pt := image.Pt(rect.Min.X, rect.Min.Y-10)
		if err := gocv.PutText(&annotated, label, pt, gocv.FontHersheySimplex, 0.6, green, 2); err != nil {
			return "", "", fmt.Errorf("failed to draw label: %w", err)
		}
	}

	now := time.Now()
	stamp := fmt.Sprintf("%s_%06d", now.Format("20060102_150405"), now.Nanosecond()/1000)

	filename := fmt.Sprintf("detection_%s.jpg", stamp)
	if ok := gocv.IMWrite(m.resultsDir+"/"+filename, annotated); !ok {
		return "", "", fmt.Errorf("failed to write result image %s", filename)
	}

	thumbHeight := annotated.Rows() * thumbWidth / annotated.Cols()
	thumb := gocv.NewMat()
	defer thumb.Close()
	gocv.Resize(annotated, &thumb, image.Pt(thumbWidth, thumbHeight), 0, 0, gocv.InterpolationArea)

	thumbFilename := fmt.Sprintf("thumb_%s.jpg", stamp)
	if ok := gocv.IMWrite(m.resultsDir+"/"+thumbFilename, thumb); !ok {
		return "", "", fmt.Errorf("failed to write thumbnail %s", thumbFilename)
	}

	return "/results/" + filename, "/results/" + thumbFilename, nil
}

// ClearAll removes every saved artifact. Used by the full history reset.
func (m *Manager) ClearAll() error {
	entries, err := os.ReadDir(m.resultsDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read results directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(m.resultsDir + "/" + entry.Name()); err != nil {
			m.logger.Error("Failed to remove artifact %s: %v", entry.Name(), err)
		}
	}
	return nil
}

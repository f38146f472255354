package models

import "time"

// Detection is one durably stored outcome of processing a single image.
// Plates, Confidences and BBoxes are parallel sequences of equal length.
type Detection struct {
	ID             int64     `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	NumPlates      int       `json:"num_plates"`
	Plates         []string  `json:"plates"`
	Confidences    []float64 `json:"confidences"`
	BBoxes         [][]int   `json:"bboxes"` // [left, top, right, bottom] pixel coordinates
	ProcessingTime float64   `json:"processing_time"`
	DetectorTime   float64   `json:"detector_time"`
	OCRTime        float64   `json:"ocr_time"`
	ImagePath      string    `json:"image_path,omitempty"`
	ThumbnailPath  string    `json:"thumbnail_path,omitempty"`
	Success        bool      `json:"success"`
}

// Stats contains aggregate statistics over the whole detection history.
type Stats struct {
	TotalDetections     int     `json:"total_detections"`
	TotalPlatesDetected int     `json:"total_plates_detected"`
	AvgProcessingTime   float64 `json:"avg_processing_time"`
	AvgConfidence       float64 `json:"avg_confidence"`
	TodayCount          int     `json:"today_count"`
	SuccessRate         float64 `json:"success_rate"`
}

// DailyStat is a per-calendar-day aggregate, newest day first.
type DailyStat struct {
	Date        string  `json:"date"`
	Count       int     `json:"count"`
	TotalPlates int     `json:"total_plates"`
	AvgTime     float64 `json:"avg_time"`
}

// HistoryFilter narrows history queries. Date bounds are inclusive and
// compare by calendar date only.
type HistoryFilter struct {
	Limit    int
	Offset   int
	DateFrom string // YYYY-MM-DD
	DateTo   string // YYYY-MM-DD
}

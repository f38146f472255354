package models

// PlateResult is a single recognized plate in an API response.
type PlateResult struct {
	PlateText           string  `json:"plate_text"`
	Confidence          float64 `json:"confidence"`
	BBox                []int   `json:"bbox"`
	DetectionConfidence float64 `json:"detection_confidence"`
}

// DetectResponse is the envelope returned by the detect endpoints.
type DetectResponse struct {
	Success        bool          `json:"success"`
	DetectionID    int64         `json:"detection_id,omitempty"`
	Timestamp      string        `json:"timestamp"`
	Results        []PlateResult `json:"results"`
	ProcessingTime float64       `json:"processing_time"`
	DetectorTime   float64       `json:"detector_time"`
	OCRTime        float64       `json:"ocr_time"`
	ImageURL       string        `json:"image_url,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// Base64ImageRequest is the payload for the base64 detect endpoint.
type Base64ImageRequest struct {
	Image      string `json:"image"`
	SaveResult bool   `json:"save_result"`
}

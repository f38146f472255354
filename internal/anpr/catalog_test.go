package anpr

import "testing"

func TestKnownRegion(t *testing.T) {
	for _, region := range Regions {
		if !KnownRegion(region.Code) {
			t.Errorf("Region %q has no vocabulary", region.Code)
		}
	}
	if KnownRegion("atlantis") {
		t.Error("Unknown region accepted")
	}
}

func TestModelFileNames(t *testing.T) {
	if got := DetectorModelFile("micro_320p_fp32"); got != "anpr_detector_micro_320p_fp32.onnx" {
		t.Errorf("Unexpected detector filename: %q", got)
	}
	if got := OCRModelFile("small_fp32"); got != "anpr_ocr_small_fp32.onnx" {
		t.Errorf("Unexpected OCR filename: %q", got)
	}
}

func TestRegionCharsets_DigitsEverywhere(t *testing.T) {
	// Every vocabulary must at least cover plain digits or CTC decoding
	// could never produce a numeric plate.
	for code, charset := range regionCharsets {
		for _, d := range "0123456789" {
			found := false
			for _, c := range charset {
				if c == d {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("Region %q vocabulary is missing digit %c", code, d)
			}
		}
	}
}

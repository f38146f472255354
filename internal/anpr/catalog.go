package anpr

import "fmt"

// ModelInfo describes one downloadable model.
type ModelInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RegionInfo describes one supported plate region.
type RegionInfo struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DetectorModels lists the known detector model descriptors.
var DetectorModels = []ModelInfo{
	{Name: "pico_320p_fp32", Description: "Smallest & fast"},
	{Name: "pico_640p_fp32", Description: "Balanced"},
	{Name: "micro_320p_fp32", Description: "Best overall"},
	{Name: "micro_320p_fp16", Description: "Best mobile"},
	{Name: "micro_640p_fp32", Description: "Highest detection"},
	{Name: "small_320p_fp32", Description: "Fastest"},
	{Name: "small_640p_fp32", Description: "High detection"},
	{Name: "medium_320p_fp32", Description: "High detection"},
	{Name: "medium_640p_fp32", Description: "Very high"},
	{Name: "large_320p_fp32", Description: "Strong"},
	{Name: "large_640p_fp32", Description: "Highest accuracy"},
}

// OCRModels lists the known OCR model descriptors.
var OCRModels = []ModelInfo{
	{Name: "pico_fp32", Description: "Edge/mobile"},
	{Name: "micro_fp32", Description: "Fast"},
	{Name: "small_fp32", Description: "Fastest"},
	{Name: "medium_fp32", Description: "Balanced"},
	{Name: "large_fp32", Description: "Best accuracy"},
}

// Regions lists the supported region vocabularies.
var Regions = []RegionInfo{
	{Code: "kr", Name: "Korea", Description: "Korean plates"},
	{Code: "eup", Name: "Europe+", Description: "EU, UK, Switzerland, Norway"},
	{Code: "na", Name: "North America", Description: "USA, Canada, Mexico"},
	{Code: "cn", Name: "China", Description: "Chinese plates"},
	{Code: "univ", Name: "Universal", Description: "All regions, lower accuracy"},
}

// regionCharsets maps a region code to its OCR decoding vocabulary.
var regionCharsets = map[string]string{
	"kr":   "0123456789가나다라마거너더러머버서어저고노도로모보소오조구누두루무부수우주아바사자하허호",
	"eup":  "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZÄÖÜ-",
	"na":   "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ-",
	"cn":   "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ京津冀晋蒙辽吉黑沪苏浙皖闽赣鲁豫鄂湘粤桂琼渝川贵云藏陕甘青宁新",
	"univ": "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ가나다라마거너더러머버서어저고노도로모보소오조구누두루무부수우주아바사자하허호京津冀晋蒙辽吉黑沪苏浙皖闽赣鲁豫鄂湘粤桂琼渝川贵云藏陕甘青宁新-",
}

// DetectorModelFile returns the on-disk filename for a detector descriptor.
func DetectorModelFile(name string) string {
	return fmt.Sprintf("anpr_detector_%s.onnx", name)
}

// OCRModelFile returns the on-disk filename for an OCR descriptor.
func OCRModelFile(name string) string {
	return fmt.Sprintf("anpr_ocr_%s.onnx", name)
}

// KnownRegion reports whether a region code has a vocabulary.
func KnownRegion(code string) bool {
	_, ok := regionCharsets[code]
	return ok
}

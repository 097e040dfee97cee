package model

// ForecastPoint is one predicted close produced by a forecaster.
type ForecastPoint struct {
	Date       string  `json:"date"` // YYYY-MM-DD
	Predicted  float64 `json:"predicted"`
	Confidence float64 `json:"confidence"` // 0..1
	Algorithm  string  `json:"algorithm"`
}

package types

// Candle is an aggregated OHLCV bar for a fixed interval.
type Candle struct {
	Ts         int64         `json:"ts"`
	Instrument InstrumentRef `json:"instrument"`
	Open       float64       `json:"open"`
	High       float64       `json:"high"`
	Low        float64       `json:"low"`
	Close      float64       `json:"close"`
	Volume     float64       `json:"volume"`
	Interval   string        `json:"interval"`
}

// FeatureVector holds computed features for one instrument at a point in
// time. Never mutated after creation.
type FeatureVector struct {
	Ts         int64              `json:"ts"`
	Instrument InstrumentRef      `json:"instrument"`
	Values     map[string]float64 `json:"values"`
	Meta       map[string]any     `json:"meta,omitempty"`
}

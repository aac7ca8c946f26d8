package models

import "time"

// Policy holds the per-variant trading rules applied to every AI
// decision. Two presets exist: paper simulation and live BingX
// execution. All other code paths share one policy struct instead of
// forking per variant.
type Policy struct {
	Variant        string        `json:"variant"`
	MinConfidence  int           `json:"min_confidence"`
	MinLeverage    float64       `json:"min_leverage"`
	MaxLeverage    float64       `json:"max_leverage"`
	MinAmount      float64       `json:"min_amount"`
	MaxAmount      float64       `json:"max_amount"`
	Cooldown       time.Duration `json:"cooldown"`
	SinglePosition bool          `json:"single_position"`
	AllowLossClose bool          `json:"allow_loss_close"`
	// FallbackOnError enables a conservative rule-based decision when
	// the recommendation service fails. Only the paper variant defines
	// a fallback; live fails closed.
	FallbackOnError bool `json:"fallback_on_error"`
}

// PaperPolicy returns the simulation preset.
func PaperPolicy(maxAmount float64) Policy {
	return Policy{
		Variant:         "paper",
		MinConfidence:   65,
		MinLeverage:     1,
		MaxLeverage:     10,
		MinAmount:       10,
		MaxAmount:       maxAmount,
		Cooldown:        5 * time.Minute,
		SinglePosition:  false,
		AllowLossClose:  false,
		FallbackOnError: true,
	}
}

// LivePolicy returns the BingX execution preset. The 11.73 USDT floor
// is the exchange minimum order value for BTC-USDT perpetuals.
func LivePolicy(maxAmount float64) Policy {
	return Policy{
		Variant:         "live",
		MinConfidence:   70,
		MinLeverage:     10,
		MaxLeverage:     125,
		MinAmount:       11.73,
		MaxAmount:       maxAmount,
		Cooldown:        5 * time.Minute,
		SinglePosition:  true,
		AllowLossClose:  false,
		FallbackOnError: false,
	}
}

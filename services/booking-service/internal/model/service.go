package model

import "time"

type PricingMode string

const (
	PricingFlat  PricingMode = "flat"
	PricingSized PricingMode = "sized"
)

// Service is a catalog entry. Packages are priced either by size tier or by a
// flat base price; solo services additionally carry add-on and standalone prices.
type Service struct {
	ID              int64  `json:"id"`
	Name            string `json:"service_name"`
	DurationMinutes int    `json:"duration_minutes"`
	IsSolo          bool   `json:"is_solo"`
	CanBeAddon      bool   `json:"can_be_addon"`
	CanBeStandalone bool   `json:"can_be_standalone"`
	HasSizes        bool   `json:"has_sizes"`
	MayOverlap      bool   `json:"may_overlap"`
	BasePrice       Price  `json:"base_price"`
	SmallPrice      Price  `json:"small_price"`
	MediumPrice     Price  `json:"medium_price"`
	LargePrice      Price  `json:"large_price"`
	ExtraLargePrice Price  `json:"extra_large_price"`
	AddonPrice      Price  `json:"addon_price"`
	StandalonePrice Price  `json:"standalone_price"`
}

func (s Service) PricingMode() PricingMode {
	if s.HasSizes {
		return PricingSized
	}
	return PricingFlat
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// Validate lists catalog invariant violations. Pricing never rejects on
// these; callers log them.
func (s Service) Validate() []string {
	var problems []string
	if s.DurationMinutes <= 0 {
		problems = append(problems, "duration_minutes must be positive")
	}
	sizedSet := !s.SmallPrice.IsZero() || !s.MediumPrice.IsZero() || !s.LargePrice.IsZero() || !s.ExtraLargePrice.IsZero()
	if s.HasSizes && !s.BasePrice.IsZero() {
		problems = append(problems, "sized service must not carry base_price")
	}
	if !s.HasSizes && sizedSet {
		problems = append(problems, "flat service must not carry size prices")
	}
	if !s.IsSolo && (!s.AddonPrice.IsZero() || !s.StandalonePrice.IsZero()) {
		problems = append(problems, "addon/standalone prices are only valid on solo services")
	}
	if s.IsSolo && !s.CanBeAddon && !s.AddonPrice.IsZero() {
		problems = append(problems, "addon_price set but can_be_addon is false")
	}
	if s.IsSolo && !s.CanBeStandalone && !s.StandalonePrice.IsZero() {
		problems = append(problems, "standalone_price set but can_be_standalone is false")
	}
	return problems
}

// BookableStandalone reports whether the service can be the primary service of an appointment.
func (s Service) BookableStandalone() bool {
	return !s.IsSolo || s.CanBeStandalone
}

func (s Service) AttachableAsAddon() bool {
	return s.IsSolo && s.CanBeAddon
}

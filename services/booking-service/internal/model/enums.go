package model

import "strings"

type Branch string

const (
	BranchMatina Branch = "Matina"
	BranchToril  Branch = "Toril"
)

var Branches = []Branch{BranchMatina, BranchToril}

func ParseBranch(raw string) (Branch, error) {
	for _, b := range Branches {
		if strings.EqualFold(strings.TrimSpace(raw), string(b)) {
			return b, nil
		}
	}
	return "", Invalid("branch", "must be one of Matina, Toril")
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return s, nil
	}
	return "", Invalid("status", "must be one of pending, confirmed, completed, cancelled")
}

// Blocks reports whether an appointment in this status occupies its slot.
func (s Status) Blocks() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition encodes pending -> confirmed -> completed|cancelled.
// Completion is only reachable through payment capture.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled || to == StatusCompleted
	case StatusConfirmed:
		return to == StatusCancelled || to == StatusCompleted
	default:
		return false
	}
}

// Size is the pet size tier used by sized services.
type Size string

const (
	SizeSmall      Size = "S"
	SizeMedium     Size = "M"
	SizeLarge      Size = "L"
	SizeExtraLarge Size = "XL"
)

// ParseSize never fails: blank or unknown selections mean Medium.
func ParseSize(raw string) Size {
	switch Size(strings.ToUpper(strings.TrimSpace(raw))) {
	case SizeSmall:
		return SizeSmall
	case SizeLarge:
		return SizeLarge
	case SizeExtraLarge:
		return SizeExtraLarge
	default:
		return SizeMedium
	}
}

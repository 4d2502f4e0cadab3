package enums

import "fmt"

// OutfitStatus is the canonical lifecycle status of an outfit. Legacy labels
// from older clients ("created", "new") map to custom at parse time.
type OutfitStatus string

const (
	OutfitStatusSuggested OutfitStatus = "suggested"
	OutfitStatusWorn      OutfitStatus = "worn"
	OutfitStatusDisliked  OutfitStatus = "disliked"
	OutfitStatusCustom    OutfitStatus = "custom"
)

var validOutfitStatuses = []OutfitStatus{
	OutfitStatusSuggested,
	OutfitStatusWorn,
	OutfitStatusDisliked,
	OutfitStatusCustom,
}

var legacyOutfitStatuses = map[string]OutfitStatus{
	"created": OutfitStatusCustom,
	"new":     OutfitStatusCustom,
}

// String returns the literal string for the status.
func (s OutfitStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is canonical.
func (s OutfitStatus) IsValid() bool {
	for _, candidate := range validOutfitStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOutfitStatus converts raw input into an OutfitStatus, accepting the
// legacy labels older clients still send.
func ParseOutfitStatus(value string) (OutfitStatus, error) {
	for _, candidate := range validOutfitStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	if mapped, ok := legacyOutfitStatuses[value]; ok {
		return mapped, nil
	}
	return "", fmt.Errorf("invalid outfit status %q", value)
}

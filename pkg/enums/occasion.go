package enums

import (
	"fmt"
	"strings"
)

// Occasion classifies an important day. Clients submit free-text labels;
// NormalizeOccasion folds known variants into the closed set.
type Occasion string

const (
	OccasionBirthday    Occasion = "birthday"
	OccasionAnniversary Occasion = "anniversary"
	OccasionWedding     Occasion = "wedding"
	OccasionGraduation  Occasion = "graduation"
	OccasionMeeting     Occasion = "meeting"
	OccasionHoliday     Occasion = "holiday"
	OccasionOther       Occasion = "other"
)

var validOccasions = []Occasion{
	OccasionBirthday,
	OccasionAnniversary,
	OccasionWedding,
	OccasionGraduation,
	OccasionMeeting,
	OccasionHoliday,
	OccasionOther,
}

// occasionAliases maps label variants (including the Turkish labels
// historical clients submitted) to the canonical occasion.
var occasionAliases = map[string]Occasion{
	"birthday":   OccasionBirthday,
	"doğum günü": OccasionBirthday,

	"anniversary": OccasionAnniversary,
	"yıldönümü":   OccasionAnniversary,
	"yıl dönümü":  OccasionAnniversary,

	"wedding": OccasionWedding,
	"düğün":   OccasionWedding,

	"graduation": OccasionGraduation,
	"mezuniyet":  OccasionGraduation,

	"meeting":   OccasionMeeting,
	"toplantı":  OccasionMeeting,
	"interview": OccasionMeeting,
	"mülakat":   OccasionMeeting,

	"holiday": OccasionHoliday,
	"tatil":   OccasionHoliday,
	"bayram":  OccasionHoliday,

	"other": OccasionOther,
	"diğer": OccasionOther,
}

// String returns the literal string for the occasion.
func (o Occasion) String() string {
	return string(o)
}

// IsValid reports whether the occasion is canonical.
func (o Occasion) IsValid() bool {
	for _, candidate := range validOccasions {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOccasion converts a canonical string into an Occasion.
func ParseOccasion(value string) (Occasion, error) {
	for _, candidate := range validOccasions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid occasion %q", value)
}

// NormalizeOccasion maps a free-text label to the canonical enum. Unknown
// labels normalize to OccasionOther rather than failing.
func NormalizeOccasion(raw string) Occasion {
	label := strings.ToLower(strings.TrimSpace(raw))
	if label == "" {
		return OccasionOther
	}
	if occasion, ok := occasionAliases[label]; ok {
		return occasion
	}
	return OccasionOther
}

package enums

import "fmt"

// MediaStatus describes the lifecycle state of media objects.
type MediaStatus string

const (
	MediaStatusUploaded        MediaStatus = "uploaded"
	MediaStatusDeleteRequested MediaStatus = "delete_requested"
	MediaStatusDeleted         MediaStatus = "deleted"
	MediaStatusDeleteFailed    MediaStatus = "delete_failed"
)

var validMediaStatuses = []MediaStatus{
	MediaStatusUploaded,
	MediaStatusDeleteRequested,
	MediaStatusDeleted,
	MediaStatusDeleteFailed,
}

// String returns the literal string for the status.
func (m MediaStatus) String() string {
	return string(m)
}

// IsValid reports whether the status is known.
func (m MediaStatus) IsValid() bool {
	for _, candidate := range validMediaStatuses {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMediaStatus converts raw input into a MediaStatus.
func ParseMediaStatus(value string) (MediaStatus, error) {
	for _, candidate := range validMediaStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media status %q", value)
}

package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Size limits (in bytes)
const (
	MaxPayloadSize = 1 * 1024 * 1024 // 1MB - one channel message
	MaxMessageSize = 16 * 1024       // 16KB - one ingested log line
)

// String length limits
const (
	MaxNameLength   = 128
	MaxRoleLength   = 64
	MaxSourceLength = 64
	MaxMarkerLength = 1024
	MaxActorCount   = 1024
)

// SourcePattern allows alphanumeric, dots, hyphens, underscores
var SourcePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// String validates a string field with length and content checks
func String(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	if value == "" {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}
	return nil
}

// Name validates an optional display name. Empty means "use the default".
func Name(name, fieldName string) error {
	return String(name, fieldName, 1, MaxNameLength, false)
}

// Role validates an optional process role
func Role(role string) error {
	return String(role, "role", 1, MaxRoleLength, false)
}

// Marker validates an optional emitter marker
func Marker(marker string) error {
	return String(marker, "marker", 1, MaxMarkerLength, false)
}

// Source validates a log source, which becomes a logger name
func Source(source string) error {
	if err := String(source, "source", 1, MaxSourceLength, false); err != nil {
		return err
	}
	if source != "" && !SourcePattern.MatchString(source) {
		return fmt.Errorf("source contains invalid characters (only alphanumeric, dots, hyphens, and underscores allowed)")
	}
	return nil
}

// Actors validates an allow-list of actor ids
func Actors(ids []int, fieldName string) error {
	if len(ids) > MaxActorCount {
		return fmt.Errorf("too many %s (maximum %d)", fieldName, MaxActorCount)
	}
	for i, v := range ids {
		if v < 0 {
			return fmt.Errorf("%s[%d] must not be negative", fieldName, i)
		}
	}
	return nil
}

// Actor validates one actor id
func Actor(v int, fieldName string) error {
	if v < 0 {
		return fmt.Errorf("%s must not be negative", fieldName)
	}
	return nil
}

// PayloadSize checks a channel payload against MaxPayloadSize
func PayloadSize(data []byte) error {
	if len(data) > MaxPayloadSize {
		return fmt.Errorf("payload size %d bytes exceeds maximum %d bytes", len(data), MaxPayloadSize)
	}
	return nil
}

// Message validates an ingested log message
func Message(message string) error {
	if err := String(message, "message", 1, MaxMessageSize, true); err != nil {
		return err
	}
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("message is blank")
	}
	return nil
}

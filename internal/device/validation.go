package device

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength = 100
	maxSlugLength = 50
	slugPattern   = `^[a-z0-9]+(?:-[a-z0-9]+)*$`

	// Size limits for JSON fields to prevent memory exhaustion from
	// oversized telemetry reports.
	maxValuesKeys     = 100  // Max metrics per device
	maxConfigKeys     = 50   // Max keys in config map
	maxStringValueLen = 1024 // Max length for string values in JSON maps
	maxNestingDepth   = 10   // Max nesting in JSON maps
)

var slugRegex = regexp.MustCompile(slugPattern)

// Pre-computed validation sets for O(1) lookups.
var (
	validProtocols   map[Protocol]struct{}
	validDeviceTypes map[DeviceType]struct{}
)

func init() {
	validProtocols = make(map[Protocol]struct{}, len(AllProtocols()))
	for _, p := range AllProtocols() {
		validProtocols[p] = struct{}{}
	}

	validDeviceTypes = make(map[DeviceType]struct{}, len(AllDeviceTypes()))
	for _, t := range AllDeviceTypes() {
		validDeviceTypes[t] = struct{}{}
	}
}

// ValidateDevice performs comprehensive validation on a device.
// Returns an error describing the first validation failure found.
func ValidateDevice(d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}

	if err := ValidateName(d.Name); err != nil {
		return err
	}

	// Empty slug will be generated
	if d.Slug != "" {
		if err := ValidateSlug(d.Slug); err != nil {
			return err
		}
	}

	if err := ValidateDeviceType(d.Type); err != nil {
		return err
	}

	if err := ValidateProtocol(d.Protocol); err != nil {
		return err
	}

	if err := ValidateValues(d.Values); err != nil {
		return err
	}

	if len(d.Config) > maxConfigKeys {
		return fmt.Errorf("%w: config exceeds max keys (%d)", ErrInvalidDevice, maxConfigKeys)
	}
	if err := validateMapSize(d.Config, "config"); err != nil {
		return err
	}

	return nil
}

// ValidateValues checks a telemetry values map against size limits.
func ValidateValues(values Values) error {
	if len(values) > maxValuesKeys {
		return fmt.Errorf("%w: exceeds max keys (%d)", ErrInvalidValues, maxValuesKeys)
	}
	return validateMapSize(values, "values")
}

// ValidateName checks if a device name is valid.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateSlug checks if a slug format is valid.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: slug cannot be empty", ErrInvalidSlug)
	}
	if len(slug) > maxSlugLength {
		return fmt.Errorf("%w: slug exceeds %d characters", ErrInvalidSlug, maxSlugLength)
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("%w: slug must be lowercase alphanumeric with hyphens", ErrInvalidSlug)
	}
	return nil
}

// ValidateDeviceType checks if a device type is valid.
func ValidateDeviceType(deviceType DeviceType) error {
	if _, ok := validDeviceTypes[deviceType]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidDeviceType, deviceType)
}

// ValidateProtocol checks if a protocol is valid.
func ValidateProtocol(protocol Protocol) error {
	if _, ok := validProtocols[protocol]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidProtocol, protocol)
}

// validateMapSize checks that all values in a map don't exceed size
// limits, recursing into nested maps and slices.
func validateMapSize(m map[string]any, fieldName string) error {
	return validateMapSizeRecursive(m, fieldName, 0)
}

func validateMapSizeRecursive(m map[string]any, fieldName string, depth int) error {
	if depth > maxNestingDepth {
		return fmt.Errorf("%w: %s exceeds maximum nesting depth", ErrInvalidDevice, fieldName)
	}

	for k, v := range m {
		if len(k) > maxStringValueLen {
			return fmt.Errorf("%w: %s key too long", ErrInvalidDevice, fieldName)
		}
		if err := validateValueSize(v, fieldName, depth); err != nil {
			return err
		}
	}
	return nil
}

func validateValueSize(v any, fieldName string, depth int) error {
	if v == nil {
		return nil
	}

	switch val := v.(type) {
	case string:
		if len(val) > maxStringValueLen {
			return fmt.Errorf("%w: %s string value too long", ErrInvalidDevice, fieldName)
		}
	case map[string]any:
		if len(val) > maxConfigKeys {
			return fmt.Errorf("%w: %s nested map too large", ErrInvalidDevice, fieldName)
		}
		return validateMapSizeRecursive(val, fieldName, depth+1)
	case []any:
		if len(val) > maxValuesKeys {
			return fmt.Errorf("%w: %s array too large", ErrInvalidDevice, fieldName)
		}
		for _, elem := range val {
			if err := validateValueSize(elem, fieldName, depth+1); err != nil {
				return err
			}
		}
	}
	// Primitives (bool, int, float64, etc.) are safe
	return nil
}

// GenerateSlug creates a URL-safe slug from a name.
func GenerateSlug(name string) string {
	slug := strings.ToLower(name)

	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")

	// Remove any characters that aren't alphanumeric or hyphens
	var result strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	slug = result.String()

	// Remove leading/trailing hyphens and collapse multiple hyphens
	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
		slug = strings.TrimRight(slug, "-")
	}

	return slug
}

// GenerateID creates a new UUID for a device.
func GenerateID() string {
	return uuid.New().String()
}

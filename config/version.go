package config

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version constants for speechkit manifests.
const (
	APIVersion = "speechkit.altairalabs.ai/v1alpha1"
	Kind       = "SpeechConfig"
)

// validateSemanticVersion checks a MAJOR.MINOR.PATCH version, with or without
// a leading "v".
func validateSemanticVersion(version string) error {
	if version == "" {
		return fmt.Errorf("version cannot be empty")
	}
	if _, err := semver.StrictNewVersion(strings.TrimPrefix(version, "v")); err != nil {
		return fmt.Errorf("invalid semantic version: %w", err)
	}
	return nil
}

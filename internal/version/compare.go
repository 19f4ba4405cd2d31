package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckArtifactCompatibility checks if persisted run artifacts written by one
// engine release can be loaded by another.
// Returns nil if compatible, error with details if not.
//
// Compatibility Rules:
//   - If either version is "main" (development build), compatibility check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 is compatible with 1.2.5)
//
// Examples:
//   - Artifact 1.2.0, Engine 1.2.0 -> OK (exact match)
//   - Artifact 1.2.1, Engine 1.2.0 -> OK (patch differs)
//   - Artifact 1.3.0, Engine 1.2.0 -> ERROR (minor differs)
//   - Artifact 2.0.0, Engine 1.2.0 -> ERROR (major differs)
//   - Artifact main, Engine 1.2.0 -> OK (dev build, skip check)
//   - Artifact 1.2.0, Engine main -> OK (dev build, skip check)
func CheckArtifactCompatibility(artifactVersion, engineVersion string) error {
	// Strip 'v' prefix if present for consistency
	artifactVersion = strings.TrimPrefix(artifactVersion, "v")
	engineVersion = strings.TrimPrefix(engineVersion, "v")

	// Skip version check for "main" (development builds)
	if artifactVersion == "main" || engineVersion == "main" {
		return nil
	}

	// Parse artifact version
	artifactSemver, err := semver.NewVersion(artifactVersion)
	if err != nil {
		return fmt.Errorf("invalid artifact version '%s': %w", artifactVersion, err)
	}

	// Parse engine version
	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return fmt.Errorf("invalid engine version '%s': %w", engineVersion, err)
	}

	// Check major version match
	if artifactSemver.Major() != engineSemver.Major() {
		return fmt.Errorf("major version mismatch: artifacts were written by %d.x.x but engine is %d.x.x",
			artifactSemver.Major(), engineSemver.Major())
	}

	// Check minor version match
	if artifactSemver.Minor() != engineSemver.Minor() {
		return fmt.Errorf("minor version mismatch: artifacts were written by %d.%d.x but engine is %d.%d.x",
			artifactSemver.Major(), artifactSemver.Minor(),
			engineSemver.Major(), engineSemver.Minor())
	}

	// Patch versions can differ, so we're compatible
	return nil
}

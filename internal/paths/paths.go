// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// Variant identifies which extension identity owns a storage root.
type Variant string

const (
	// VariantUltra is the enhanced extension (morganforge.rigcoder-ultra).
	VariantUltra Variant = "ultra"
	// VariantStandard is the standard extension (morganforge.rigcoder).
	VariantStandard Variant = "standard"
)

// Extension directory names under VSCode global storage.
const (
	ultraExtensionDir    = "morganforge.rigcoder-ultra"
	standardExtensionDir = "morganforge.rigcoder"

	// tasksDirName is the per-extension subdirectory holding one directory
	// per task.
	tasksDirName = "tasks"
)

// Root is one candidate task storage directory.
type Root struct {
	// Dir is the tasks directory itself (contains one subdirectory per task).
	Dir string
	// Variant records which extension identity this root belongs to.
	Variant Variant
}

// CandidateRoots returns every root that may hold task conversations, in
// resolution order. Extra roots from configuration are probed first (they
// exist so tests and portable installs can redirect storage), then the
// platform defaults.
func CandidateRoots(extraRoots []string) []Root {
	return rootsFor(globalStorageDirs(), extraRoots)
}

// ExtraRootsOnly returns only the configured extra roots, skipping the
// platform defaults entirely. Used when default scanning is disabled.
func ExtraRootsOnly(extraRoots []string) []Root {
	return rootsFor(nil, extraRoots)
}

// rootsFor builds the ordered root list from global storage directories.
// Split out from CandidateRoots so the ordering contract is testable
// without faking the platform.
func rootsFor(storageDirs []string, extraRoots []string) []Root {
	roots := make([]Root, 0, len(extraRoots)+len(storageDirs)*2)

	for _, dir := range extraRoots {
		if dir == "" {
			continue
		}
		roots = append(roots, Root{Dir: dir, Variant: VariantStandard})
	}

	// Ultra before standard within each storage convention: when both
	// extensions are installed the enhanced one owns the newer data.
	for _, storage := range storageDirs {
		roots = append(roots,
			Root{Dir: filepath.Join(storage, ultraExtensionDir, tasksDirName), Variant: VariantUltra},
			Root{Dir: filepath.Join(storage, standardExtensionDir, tasksDirName), Variant: VariantStandard},
		)
	}

	return roots
}

// globalStorageDirs returns the VSCode global storage directories for the
// current platform, stable channel before Insiders.
func globalStorageDirs() []string {
	var bases []string

	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		bases = []string{
			filepath.Join(appData, "Code"),
			filepath.Join(appData, "Code - Insiders"),
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		support := filepath.Join(home, "Library", "Application Support")
		bases = []string{
			filepath.Join(support, "Code"),
			filepath.Join(support, "Code - Insiders"),
		}
	default:
		// Linux and everything else follows the XDG layout.
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		config := os.Getenv("XDG_CONFIG_HOME")
		if config == "" {
			config = filepath.Join(home, ".config")
		}
		bases = []string{
			filepath.Join(config, "Code"),
			filepath.Join(config, "Code - Insiders"),
		}
	}

	dirs := make([]string, 0, len(bases))
	for _, base := range bases {
		dirs = append(dirs, filepath.Join(base, "User", "globalStorage"))
	}
	return dirs
}

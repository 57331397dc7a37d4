// Package dotdir manages the .aidm/ and ~/.aidm directories.
//
// The dot directory holds the bot's config.toml, the routes.json routing
// document, and the transcripts.db exchange log.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the aidm directory.
	dirName = ".aidm"

	// RoutesFile is the routing document file name inside the dot directory.
	RoutesFile = "routes.json"

	// TranscriptsFile is the sqlite transcript database file name.
	TranscriptsFile = "transcripts.db"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .aidm/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.aidm/ dir
//  3. Home ~/.aidm/ dir
//  4. If none found, attempt to create ~/.aidm/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating aidm directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// RoutesPath resolves the absolute path to routes.json in the target
// .aidm/ directory.
func (m *Manager) RoutesPath(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, RoutesFile), nil
}

// TranscriptsPath resolves the absolute path to transcripts.db in the
// target .aidm/ directory.
func (m *Manager) TranscriptsPath(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, TranscriptsFile), nil
}

// localDirExists checks whether a .aidm/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}

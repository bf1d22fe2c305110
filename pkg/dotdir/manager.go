// Package dotdir manages the .tokentap/ and ~/.tokentap directories that hold
// the tokentap configuration.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the name of the tokentap directory.
	DirName = ".tokentap"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .tokentap/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.tokentap/ dir
//  3. Home ~/.tokentap/ dir
//  4. If none found, attempt to create ~/.tokentap/ dir
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
		dir = filepath.Join(cwd, DirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, DirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating tokentap directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// InitLocal creates ./.tokentap/ in the current working directory.
// created is false when the directory already existed.
func (m *Manager) InitLocal() (dir string, created bool, err error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("getting current directory: %w", err)
	}

	dir = filepath.Join(cwd, DirName)
	if m.localDirExists() {
		return dir, false, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("creating tokentap directory %s: %w", dir, err)
	}

	return dir, true, nil
}

// localDirExists checks whether a .tokentap/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, DirName))
	return err == nil && info.IsDir()
}

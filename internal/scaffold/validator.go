package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/swimlane/internal/config"
)

// CheckExisting returns an error if dir already holds a swimlane.yml.
func CheckExisting(dir string) error {
	if _, err := os.Stat(filepath.Join(dir, config.DefaultPath)); err == nil {
		return fmt.Errorf("already initialized\n\nFound existing: %s\n\nUse 'swimlane init --force' to overwrite it", config.DefaultPath)
	}
	return nil
}

// Package scaffold writes a starter swimlane.yml.
package scaffold

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/swimlane/internal/config"
)

//go:embed templates/*
var templatesFS embed.FS

// Initialize writes the default configuration into dir. If force is true an
// existing swimlane.yml is replaced.
func Initialize(dir string, force bool) (string, error) {
	path := filepath.Join(dir, config.DefaultPath)

	if force {
		if _, err := os.Stat(path); err == nil {
			fmt.Printf("⚠️  Removing existing %s...\n", config.DefaultPath)
			if err := os.Remove(path); err != nil {
				return "", fmt.Errorf("failed to remove %s: %w", config.DefaultPath, err)
			}
		}
	} else if err := CheckExisting(dir); err != nil {
		return "", err
	}

	content, err := templatesFS.ReadFile("templates/swimlane.yml.tmpl")
	if err != nil {
		return "", fmt.Errorf("failed to read swimlane.yml template: %w", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	// The written file must load cleanly with the same rules the CLI applies
	if _, err := config.Load(path); err != nil {
		return "", fmt.Errorf("created %s is invalid: %w", config.DefaultPath, err)
	}

	return path, nil
}

// PrintSuccess prints the created file and next steps
func PrintSuccess(path string) {
	fmt.Println("\n✅ Successfully initialized swimlane!")
	fmt.Println("\nCreated:")
	fmt.Printf("  ✓ %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Point redis.url at your server (or export SWIMLANE_REDIS_URL)")
	fmt.Println("  2. Create a board:  swimlane board create --name <name> --team <team>")
	fmt.Println("  3. Follow it live:  swimlane watch --board <id>")
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const characterKey = "character"

// Settings is what the client remembers between runs.
type Settings struct {
	Character string
}

// LoadSettings reads a key=value properties file. A missing file yields
// zero Settings.
func LoadSettings(path string) (Settings, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	kv, err := godotenv.Unmarshal(string(b))
	if err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return Settings{Character: strings.TrimSpace(kv[characterKey])}, nil
}

func SaveSettings(path string, s Settings) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create settings dir: %w", err)
		}
	}
	body := characterKey + "=" + s.Character + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

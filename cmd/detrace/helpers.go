package main

import (
	"io/fs"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/detrace/detrace/pkg/config"
)

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

// loadConfig loads configuration honoring the global --config flag.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		result, err := config.LoadConfig(config.WithPath(path))
		if err != nil {
			return nil, err
		}
		return result.Config, nil
	}
	return config.LoadOrDefault(), nil
}

// targetModule resolves the module to strip from the --module flag or config.
func targetModule(c *cli.Context, cfg *config.Config) string {
	if m := c.String("module"); m != "" {
		return m
	}
	return cfg.Strip.Module
}

// writeFilePreservingMode rewrites a file in place, keeping its mode
// bits when the file already exists.
func writeFilePreservingMode(path string, data []byte) error {
	mode := fs.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode()
	}
	return os.WriteFile(path, data, mode)
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 4 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

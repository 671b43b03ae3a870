// AngelaMos | 2026
// main.go

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/carterperez-dev/templates/nz-market/internal/auth"
)

func main() {
	dir := flag.String("dir", "keys", "directory for the generated key pair")
	force := flag.Bool("force", false, "overwrite an existing key pair")
	flag.Parse()

	if err := run(*dir, *force); err != nil {
		slog.Error("keygen failed", "error", err)
		os.Exit(1)
	}
}

func run(dir string, force bool) error {
	privatePath := filepath.Join(dir, "private.pem")
	publicPath := filepath.Join(dir, "public.pem")

	if !force {
		if _, err := os.Stat(privatePath); err == nil {
			return fmt.Errorf("%s exists, pass -force to replace it", privatePath)
		}
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}

	if err := auth.GenerateKeyPair(privatePath, publicPath); err != nil {
		return err
	}

	slog.Info("ES256 key pair written", "private", privatePath, "public", publicPath)
	return nil
}

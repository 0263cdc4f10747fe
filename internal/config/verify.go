package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// VerifyExecutables checks that every configured L2 CLI exists and can be executed.
func VerifyExecutables(cfg *Config) error {
	if cfg.SkipCLICheck {
		return nil
	}
	var errs []error
	for _, cli := range []struct{ name, path string }{
		{"Thunder", cfg.ThunderCLIPath},
		{"BitNames", cfg.BitNamesCLIPath},
	} {
		if err := verifyExecutable(cli.path, cli.name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func verifyExecutable(path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s CLI not found at path: %s", name, path)
		}
		return fmt.Errorf("%s CLI at %s: %w", name, path, err)
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%s CLI at %s is not executable. Please check permissions.", name, path)
	}
	return nil
}

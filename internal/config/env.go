package config

import (
	"os"
	"path/filepath"

	"github.com/subosito/gotenv"
)

// EnvResult is the output of env-file loading consumed by the orchestrator:
// the merged key/value mapping and the list of files it came from. The file
// list is what the restart coordinator watches.
type EnvResult struct {
	Values map[string]string
	Files  []string
}

// envFileNames returns the env files consulted for a mode, in precedence
// order (later files override earlier ones).
func envFileNames(mode string) []string {
	names := []string{".env", ".env.local"}
	if mode != "" {
		names = append(names, ".env."+mode, ".env."+mode+".local")
	}
	return names
}

// LoadEnv reads the project's env files for the given mode. Missing files
// are skipped; only files that were actually parsed appear in Files.
func LoadEnv(dir, mode string) (*EnvResult, error) {
	result := &EnvResult{Values: map[string]string{}}

	for _, name := range envFileNames(mode) {
		path := filepath.Join(dir, name)
		f, err := os.Open(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		values, err := gotenv.StrictParse(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		for key, value := range values {
			result.Values[key] = value
		}
		result.Files = append(result.Files, path)
	}

	return result, nil
}

package localhost

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gauntlet/internal/params"
)

// loadSecrets reads the flat key to value mapping the secrets reference
// points at. An empty reference yields no secrets. Values stay out of logs;
// they only ever reach case processes through their environment.
func loadSecrets(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, params.NewConfigurationError("", "environment",
			fmt.Sprintf("reading secrets file %s: %v", path, err))
	}
	secrets := make(map[string]string)
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return nil, params.NewConfigurationError("", "environment",
			fmt.Sprintf("parsing secrets file %s: %v", path, err))
	}
	return secrets, nil
}

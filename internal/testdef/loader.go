package testdef

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"gauntlet/pkg/logging"
)

// DefaultDefinitionsDir is where LoadCases looks beneath the workspace when
// no explicit path is configured.
const DefaultDefinitionsDir = "testcases"

// LoadCases loads all case definitions from the given path, which may be a
// single YAML file or a directory tree of them. Every loaded case is
// validated; the first invalid definition aborts the load.
func LoadCases(path string) ([]Case, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("definition path does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat definition path: %w", err)
	}

	var cases []Case
	if info.IsDir() {
		cases, err = loadCasesFromDirectory(path)
	} else {
		cases, err = loadCasesFromFile(path)
	}
	if err != nil {
		return nil, err
	}

	if err := checkUniqueNames(cases); err != nil {
		return nil, err
	}

	logging.Debug("TestDef", "Loaded %d case definitions from %s", len(cases), path)
	return cases, nil
}

func loadCasesFromDirectory(dirPath string) ([]Case, error) {
	var cases []Case

	err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAMLFile(path) {
			return nil
		}

		fileCases, err := loadCasesFromFile(path)
		if err != nil {
			return err
		}
		cases = append(cases, fileCases...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk definition directory %s: %w", dirPath, err)
	}

	return cases, nil
}

func loadCasesFromFile(filePath string) ([]Case, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file %s: %w", filePath, err)
	}

	var suite Suite
	if err := yaml.Unmarshal(content, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse YAML in %s: %w", filePath, err)
	}

	if suite.Suite == "" {
		suite.Suite = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}
	if len(suite.Cases) == 0 {
		return nil, fmt.Errorf("definition file %s contains no cases", filePath)
	}

	for i, c := range suite.Cases {
		if err := validateCase(c); err != nil {
			return nil, fmt.Errorf("invalid case %d in %s: %w", i+1, filePath, err)
		}
	}

	return suite.Cases, nil
}

func validateCase(c Case) error {
	if c.Name == "" {
		return fmt.Errorf("case name is required")
	}
	if c.Category == "" {
		return fmt.Errorf("case %s: category is required", c.Name)
	}
	if c.Area == "" {
		return fmt.Errorf("case %s: area is required", c.Name)
	}
	if strings.TrimSpace(c.Command) == "" {
		return fmt.Errorf("case %s: command is required", c.Name)
	}
	if c.Priority < 0 || c.Priority > MaxPriority {
		return fmt.Errorf("case %s: priority must be between 0 and %d", c.Name, MaxPriority)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("case %s: timeout cannot be negative", c.Name)
	}
	return nil
}

func checkUniqueNames(cases []Case) error {
	seen := make(map[string]struct{}, len(cases))
	for _, c := range cases {
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("duplicate case name %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// Validate loads and template-checks every definition under path. It is the
// standalone validation the lifecycle requires to have happened before a
// controller loads cases.
func Validate(path string) ([]Case, error) {
	cases, err := LoadCases(path)
	if err != nil {
		return nil, err
	}
	for _, c := range cases {
		if err := CheckTemplate(c.Command); err != nil {
			return nil, fmt.Errorf("case %s: bad command template: %w", c.Name, err)
		}
		for key, value := range c.Env {
			if err := CheckTemplate(value); err != nil {
				return nil, fmt.Errorf("case %s: bad template in env %s: %w", c.Name, key, err)
			}
		}
	}
	return cases, nil
}

// DefinitionsPath resolves the definitions location: an explicit path wins,
// otherwise the conventional directory beneath the workspace.
func DefinitionsPath(explicit, workspaceDir string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Join(workspaceDir, DefaultDefinitionsDir)
}

func isYAMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

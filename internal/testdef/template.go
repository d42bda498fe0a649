package testdef

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// RunFacts are the built-in template values every case command can
// reference, alongside the free-form custom parameters.
type RunFacts struct {
	ID           string
	WorkspaceDir string
	LogDir       string
}

type templateData struct {
	Run    RunFacts
	Params map[string]string
}

// ExpandCases expands the command and env templates of every case against
// the run facts and custom parameters. A reference to an undefined value
// fails the load instead of substituting an empty string.
func ExpandCases(cases []Case, facts RunFacts, custom map[string]string) ([]Case, error) {
	if custom == nil {
		custom = map[string]string{}
	}
	data := templateData{Run: facts, Params: custom}

	expanded := make([]Case, len(cases))
	for i, c := range cases {
		command, err := expand(c.Command, data)
		if err != nil {
			return nil, fmt.Errorf("case %s: %w", c.Name, err)
		}
		c.Command = command

		if len(c.Env) > 0 {
			env := make(map[string]string, len(c.Env))
			for key, value := range c.Env {
				v, err := expand(value, data)
				if err != nil {
					return nil, fmt.Errorf("case %s: env %s: %w", c.Name, key, err)
				}
				env[key] = v
			}
			c.Env = env
		}
		expanded[i] = c
	}
	return expanded, nil
}

// CheckTemplate parses a template without executing it, for standalone
// definition validation.
func CheckTemplate(text string) error {
	_, err := template.New("case").Funcs(sprig.TxtFuncMap()).Parse(text)
	return err
}

func expand(text string, data templateData) (string, error) {
	tmpl, err := template.New("case").
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var out strings.Builder
	if err := tmpl.Execute(&out, data); err != nil {
		return "", fmt.Errorf("failed to expand template: %w", err)
	}
	return out.String(), nil
}

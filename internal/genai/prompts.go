package genai

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts/defaults.yaml
var embeddedPrompts embed.FS

// Prompt is a single named template with an optional system role.
type Prompt struct {
	System   string `yaml:"system"`
	Template string `yaml:"template"`
}

// PromptSet maps prompt names (tweet, thread, hashtags, reply, image) to
// their templates.
type PromptSet map[string]Prompt

// LoadPrompts returns the embedded defaults, overlaid with any *.yaml files
// found in dir when dir is non-empty. File entries replace defaults with the
// same name; unknown names are kept so callers can add prompts.
func LoadPrompts(dir string) (PromptSet, error) {
	data, err := embeddedPrompts.ReadFile("prompts/defaults.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded prompts: %w", err)
	}

	set := PromptSet{}
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse embedded prompts: %w", err)
	}

	dir = strings.TrimSpace(dir)
	if dir == "" {
		return set, nil
	}

	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("scan prompts: %w", err)
	}
	for _, path := range paths {
		raw, err := os.ReadFile(path) // #nosec G304 -- prompt path is user-provided
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", path, err)
		}
		overlay := PromptSet{}
		if err := yaml.Unmarshal(raw, &overlay); err != nil {
			return nil, fmt.Errorf("parse prompt %s: %w", path, err)
		}
		for name, prompt := range overlay {
			if strings.TrimSpace(prompt.Template) == "" {
				return nil, fmt.Errorf("prompt %s: %q missing template", path, name)
			}
			set[name] = prompt
		}
	}

	return set, nil
}

// Render fills {{key}} placeholders in the named template.
func (p PromptSet) Render(name string, vars map[string]string) (Prompt, error) {
	prompt, ok := p[name]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt: %s", name)
	}

	rendered := prompt.Template
	for key, value := range vars {
		rendered = strings.ReplaceAll(rendered, "{{"+key+"}}", value)
	}
	prompt.Template = strings.TrimSpace(rendered)
	return prompt, nil
}

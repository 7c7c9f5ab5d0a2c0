package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

const configHeader = `fscheck Configuration File

Values can be overridden with FSCHECK_* environment variables
(e.g. FSCHECK_BACKEND_TYPE=badger) or command-line flags.`

// sectionComments are written above each top-level section.
var sectionComments = map[string]string{
	"logging": "Logging: level DEBUG|INFO|WARN|ERROR, format text|json, output stdout|stderr|<path>",
	"backend": "Backend under test: memory, badger, bolt, filesystem or s3.\nOnly the section matching type is used.\nrate_limit.ops_per_second > 0 paces every backend call.",
	"harness": "Test battery. Sized cases run for min_size, min_size*size_factor, ... up to max_size.\npropagation_delay is the wait before checks that expect eventual visibility.",
	"report":  "Machine-readable report (json|yaml). An empty path disables the file.",
	"metrics": "Prometheus endpoint, served while the run is in progress",
}

// InitConfig writes the default configuration to the default location.
//
// Parameters:
//   - force: Overwrite an existing file
//
// Returns:
//   - string: Path of the written file
//   - error: If the file exists and force is false, or writing fails
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes the default configuration to path, creating
// parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use force to overwrite)", path)
		}
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewBufferString(content)); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// generateYAMLWithComments renders cfg as YAML with a header and one
// comment per section.
func generateYAMLWithComments(cfg *Config) (string, error) {
	var root yaml.Node
	if err := root.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		if comment, ok := sectionComments[root.Content[i].Value]; ok {
			root.Content[i].HeadComment = comment
		}
	}

	doc := &yaml.Node{
		Kind:        yaml.DocumentNode,
		HeadComment: configHeader,
		Content:     []*yaml.Node{&root},
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	return buf.String(), nil
}

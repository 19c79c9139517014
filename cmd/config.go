package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// configPath returns the config file to read and whether it must exist
func configPath(explicit string) (string, bool) {
	if explicit != "" {
		return explicit, true
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(home, ".imprior.yaml"), false
}

// configString renders a YAML value the way it would be typed as a flag.
// Lists become space separated vectors.
func configString(v interface{}) string {
	if list, ok := v.([]interface{}); ok {
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, " ")
	}
	return fmt.Sprint(v)
}

// applyConfig reads the YAML config and uses its values for every flag not
// given on the command line. Top level keys apply to all commands; a mapping
// named after the command applies only to that command and wins.
//
//	seed: 42
//	cwmh:
//	  dim: 5
//	prox:
//	  point: [-1, 0.5, 2]
func applyConfig(cmd *cobra.Command, explicit string) error {
	path, required := configPath(explicit)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !required && os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "Could not read config file %s", path)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return errors.Wrapf(err, "Could not parse config file %s", path)
	}

	values := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		if _, section := v.(map[string]interface{}); !section {
			values[k] = v
		}
	}
	if section, ok := raw[cmd.Name()].(map[string]interface{}); ok {
		for k, v := range section {
			values[k] = v
		}
	}

	var setErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		v, ok := values[f.Name]
		if !ok || f.Changed || setErr != nil {
			return
		}
		if err := f.Value.Set(configString(v)); err != nil {
			setErr = errors.Wrapf(err, "Invalid config value for %s in %s", f.Name, path)
		}
	})
	return setErr
}

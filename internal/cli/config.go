package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/onboard/internal/config"
	onboarderr "github.com/mrz1836/onboard/pkg/errors"
)

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and modify onboard configuration settings.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at ~/.onboard/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.

Example:
  onboard config init
  onboard config init --force`,
	RunE: runConfigInit,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration, including environment overrides.
The PIN salt is masked.

Example:
  onboard config show
  onboard config show -o json`,
	RunE: runConfigShow,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Get a configuration value",
	Long: `Get a configuration value by its dotted YAML path.

Examples:
  onboard config get backend.url
  onboard config get store.backend
  onboard config get rates.fiat`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value by its dotted YAML path and save the file.
Values are parsed as YAML, so lists can be written as [USD, EUR].

Examples:
  onboard config set store.backend sqlite
  onboard config set backend.url https://api.example.com/v1
  onboard config set logging.level debug`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	configPath := config.Path(cfg.Home)

	if _, err := os.Stat(configPath); err == nil && !configForce {
		return onboarderr.WithSuggestion(
			onboarderr.ErrGeneral,
			fmt.Sprintf("configuration already exists at %s. Use --force to overwrite.", configPath),
		)
	}

	defaultCfg := config.Defaults()
	defaultCfg.Home = cfg.Home
	if err := config.Save(defaultCfg, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	w := cmd.OutOrStdout()
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - backend.url: identity backend endpoint")
	outln(w, "  - chat.url: chat provisioning endpoint")
	outln(w, "  - store.backend: bolt, sqlite, file or memory")
	outln(w, "  - encryption.pin_salt: salt mixed into the PIN")
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	shown := *cfg
	shown.Encryption.PINSalt = maskSecret(cfg.Encryption.PINSalt)
	shown.Push.Token = maskSecret(cfg.Push.Token)

	tree, err := configTree(&shown)
	if err != nil {
		return err
	}
	return commandFormatter(cmd).Emit(tree, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&shown); err != nil {
			return err
		}
		return enc.Close()
	})
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	value, err := getConfigValue(cfg, args[0])
	if err != nil {
		return err
	}
	outln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path, value := args[0], args[1]
	configPath := config.Path(cfg.Home)

	current, err := config.Load(configPath)
	if err != nil {
		current = config.Defaults()
		current.Home = cfg.Home
	}

	updated, err := setConfigValue(current, path, value)
	if err != nil {
		return err
	}
	if err := config.Save(updated, configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	out(cmd.OutOrStdout(), "Set %s = %s\n", path, value)
	return nil
}

// configTree renders c as a generic YAML tree.
func configTree(c *config.Config) (map[string]any, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	tree := map[string]any{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func unknownKey(path string) error {
	return onboarderr.WithSuggestion(
		onboarderr.WithDetails(onboarderr.ErrNotFound, map[string]string{"path": path}),
		fmt.Sprintf("configuration path '%s' not found", path),
	)
}

// getConfigValue retrieves a value from the config using dot notation.
func getConfigValue(c *config.Config, path string) (string, error) {
	tree, err := configTree(c)
	if err != nil {
		return "", err
	}

	var node any = tree
	for _, part := range strings.Split(path, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return "", unknownKey(path)
		}
		if node, ok = m[part]; !ok {
			return "", unknownKey(path)
		}
	}

	if _, isMap := node.(map[string]any); isMap {
		return "", unknownKey(path)
	}
	if list, ok := node.([]any); ok {
		parts := make([]string, len(list))
		for i, v := range list {
			parts[i] = fmt.Sprint(v)
		}
		return strings.Join(parts, ","), nil
	}
	return fmt.Sprint(node), nil
}

// setConfigValue returns a copy of c with the value at path replaced.
// The path must already exist.
func setConfigValue(c *config.Config, path, value string) (*config.Config, error) {
	tree, err := configTree(c)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(path, ".")
	node := tree
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]any)
		if !ok {
			return nil, unknownKey(path)
		}
		node = next
	}
	leaf := parts[len(parts)-1]
	if _, ok := node[leaf]; !ok {
		return nil, unknownKey(path)
	}
	if _, isMap := node[leaf].(map[string]any); isMap {
		return nil, unknownKey(path)
	}

	var parsed any
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return nil, onboarderr.WithCause(onboarderr.ErrInvalidInput, err)
	}
	node[leaf] = parsed

	data, err := yaml.Marshal(tree)
	if err != nil {
		return nil, err
	}
	updated := config.Defaults()
	if err := yaml.Unmarshal(data, updated); err != nil {
		return nil, onboarderr.WithDetails(
			onboarderr.WithCause(onboarderr.ErrConfigInvalid, err),
			map[string]string{"path": path, "value": value},
		)
	}
	return updated, nil
}

func maskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) >= 8:
		return s[:4] + "..."
	default:
		return "***"
	}
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Anvoria/authgate/internal/config"
)

// options are the persistent flags shared by every command
type options struct {
	configPath string
}

// NewRootCommand builds the authgate command tree
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "authgate",
		Short: "Bearer credential verification service",
		Long: `authgate verifies signed bearer credentials (access, refresh, masquerade and
acting_as) against a rotating pair of signing keys and an absolute session timeout.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"Configuration file (default is $CONFIG_PATH or config.yaml)")

	root.AddCommand(
		newServeCommand(opts),
		newKeysCommand(opts),
		newMintCommand(opts),
		newVerifyCommand(opts),
	)
	return root
}

// loadConfig reads .env, the environment and the YAML file, in that order of precedence
func (o *options) loadConfig() (*config.Config, *config.Environment, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, nil, fmt.Errorf("failed to load .env: %w", err)
	}
	env := config.LoadEnv()

	path := o.configPath
	if path == "" {
		path = env.ConfigPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	cfg.ApplyEnv(env)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, env, nil
}

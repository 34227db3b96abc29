package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"github.com/Anvoria/authgate/internal/domain/keys"
)

const adminTimeout = 10 * time.Second

func newKeysCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage signing keys",
	}
	cmd.AddCommand(
		newKeysGenerateCommand(opts),
		newKeysListCommand(opts),
		newKeysRotateCommand(),
		newKeysRetireCommand(),
	)
	return cmd
}

// keysDir returns the explicit --path, falling back to auth.keys_path
func (o *options) keysDir(path string) (string, keys.Algorithm, error) {
	if path != "" {
		return path, "", nil
	}
	cfg, _, err := o.loadConfig()
	if err != nil {
		return "", "", err
	}
	alg, err := keys.ParseAlgorithm(cfg.Auth.Algorithm)
	return cfg.Auth.KeysPath, alg, err
}

func newKeysGenerateCommand(opts *options) *cobra.Command {
	var (
		kid  string
		alg  string
		bits int
		path string
	)

	cmd := &cobra.Command{
		Use:     "generate",
		Short:   "Generate key material in the keys directory",
		Example: "  authgate keys generate --kid 2026-10 --alg RS256 --bits 3072",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if kid == "" {
				return errors.New("--kid is required")
			}

			dir, configured, err := opts.keysDir(path)
			if err != nil {
				return err
			}

			algorithm := configured
			switch {
			case alg != "":
				if algorithm, err = keys.ParseAlgorithm(alg); err != nil {
					return err
				}
			case algorithm == "":
				algorithm = keys.HS256
			}

			gen, err := keys.GenerateKey(dir, algorithm, kid, bits)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Generated %s key %q\n", algorithm, gen.KID)
			for _, f := range gen.Files {
				fmt.Fprintf(out, "  %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kid, "kid", "", "Key ID (required)")
	cmd.Flags().StringVar(&alg, "alg", "", "Algorithm: HS256 or RS256 (default from config, else HS256)")
	cmd.Flags().IntVar(&bits, "bits", 2048, "RSA key size: 2048, 3072 or 4096")
	cmd.Flags().StringVar(&path, "path", "", "Keys directory (overrides config)")
	return cmd
}

func newKeysListCommand(opts *options) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List keys found in the keys directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := path
			var current, previous string
			if dir == "" {
				cfg, _, err := opts.loadConfig()
				if err != nil {
					return err
				}
				dir = cfg.Auth.KeysPath
				current, previous = cfg.Auth.CurrentKID, cfg.Auth.PreviousKID
			}

			found, err := keys.ListKeys(dir)
			if err != nil {
				return err
			}
			if len(found) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No keys found in %s\n", dir)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KID\tALGORITHM\tSIGNING\tSLOT")
			for _, k := range found {
				slot := ""
				switch k.KID {
				case current:
					slot = "current"
				case previous:
					slot = "previous"
				}
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", k.KID, k.Algorithm, k.HasPrivate, slot)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Keys directory (overrides config)")
	return cmd
}

// adminFlags address the admin API of a running server
type adminFlags struct {
	server string
	token  string
}

func (a *adminFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.server, "server", "http://localhost:8080", "Base URL of the running authgate server")
	cmd.Flags().StringVar(&a.token, "token", "", "Admin access credential (required)")
}

// post calls an admin endpoint and returns the key status it reports
func (a *adminFlags) post(path string, body any) (*keys.Status, error) {
	if a.token == "" {
		return nil, errors.New("--token is required")
	}

	agent := fiber.Post(strings.TrimRight(a.server, "/") + path).
		Set(fiber.HeaderAuthorization, "Bearer "+a.token).
		Timeout(adminTimeout)
	if body != nil {
		agent = agent.JSON(body)
	}

	code, data, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("request to %s failed: %w", path, errors.Join(errs...))
	}

	var res struct {
		Success bool        `json:"success"`
		Data    keys.Status `json:"data"`
		Error   string      `json:"error"`
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("unexpected response from %s (status %d): %w", path, code, err)
	}
	if !res.Success {
		return nil, fmt.Errorf("server refused %s (status %d): %s", path, code, res.Error)
	}
	return &res.Data, nil
}

func printStatus(cmd *cobra.Command, st *keys.Status) {
	previous := st.PreviousKID
	if previous == "" {
		previous = "-"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "algorithm=%s current=%s previous=%s\n", st.Algorithm, st.CurrentKID, previous)
}

func newKeysRotateCommand() *cobra.Command {
	var (
		admin adminFlags
		kid   string
	)

	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Make a key from the server's keys directory current",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if kid == "" {
				return errors.New("--kid is required")
			}
			st, err := admin.post("/v1/admin/keys/rotate", fiber.Map{"kid": kid})
			if err != nil {
				return err
			}
			printStatus(cmd, st)
			return nil
		},
	}

	admin.register(cmd)
	cmd.Flags().StringVar(&kid, "kid", "", "Key ID to rotate to (required)")
	return cmd
}

func newKeysRetireCommand() *cobra.Command {
	var admin adminFlags

	cmd := &cobra.Command{
		Use:   "retire",
		Short: "Stop accepting credentials signed with the previous key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := admin.post("/v1/admin/keys/retire-previous", nil)
			if err != nil {
				return err
			}
			printStatus(cmd, st)
			return nil
		},
	}

	admin.register(cmd)
	return cmd
}

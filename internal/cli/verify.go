package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Anvoria/authgate/internal/domain/auth"
	"github.com/Anvoria/authgate/internal/domain/token"
	"github.com/Anvoria/authgate/internal/server"
)

func newVerifyCommand(opts *options) *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "verify <credential>",
		Short: "Verify a credential offline with the configured keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.loadConfig()
			if err != nil {
				return err
			}

			expected, ok := token.ParseType(typ)
			if !ok {
				return fmt.Errorf("unknown token type %q", typ)
			}

			v, _, err := server.BuildVerifier(cfg)
			if err != nil {
				return err
			}

			identity, err := v.Verify(strings.TrimSpace(args[0]), expected)
			if err != nil {
				reason, _ := auth.ReasonOf(err)
				return fmt.Errorf("rejected: %s", reason)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(verifyOutput(identity))
		},
	}

	cmd.Flags().StringVar(&typ, "type", string(token.TypeAccess), "Expected token type")
	return cmd
}

// verifyOutput adds the derived fields the HTTP session endpoint reports, plus the key ID
func verifyOutput(id *auth.VerifiedIdentity) map[string]any {
	return map[string]any{
		"identity":       id,
		"key_id":         id.KeyID,
		"delegated":      id.Delegated(),
		"effective_role": id.EffectiveRoleName(),
	}
}

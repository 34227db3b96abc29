package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Anvoria/authgate/internal/config"
	"github.com/Anvoria/authgate/internal/domain/keys"
	"github.com/Anvoria/authgate/internal/domain/token"
)

// ErrMintInProduction is returned when mint runs with ENVIRONMENT=production
var ErrMintInProduction = errors.New("minting development credentials is disabled in production")

func newMintCommand(opts *options) *cobra.Command {
	var (
		req       token.MintRequest
		typ       string
		ttl       time.Duration
		age       time.Duration
		sessionID bool
	)

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Sign a development credential with the current key",
		Example: `  authgate mint --sub u1 --type access --role student
  authgate mint --sub u2 --type masquerade --actor admin-1 --target u2
  authgate mint --sub u1 --type acting_as --home-role teacher --effective-role student`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, env, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if env.Environment == config.EnvironmentProduction {
				return ErrMintInProduction
			}

			t, ok := token.ParseType(typ)
			if !ok {
				return fmt.Errorf("unknown token type %q", typ)
			}
			req.Type = t
			req.TTL = ttl
			if age > 0 {
				req.IssuedAt = time.Now().Add(-age)
			}
			if sessionID {
				req.SessionID = uuid.NewString()
			}

			ks, err := keys.LoadKeyStore(cfg.Auth)
			if err != nil {
				return err
			}

			credential, err := token.Mint(ks.Current(), req, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), credential)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Subject, "sub", "", "Subject ID")
	f.StringVar(&typ, "type", string(token.TypeAccess), "Token type: access, refresh, masquerade or acting_as")
	f.StringVar(&req.Role, "role", "", "Role")
	f.StringVar(&req.ActorID, "actor", "", "Masquerade: administrator ID")
	f.StringVar(&req.TargetID, "target", "", "Masquerade: impersonated account ID")
	f.StringVar(&req.HomeRole, "home-role", "", "Acting-as: the subject's own role")
	f.StringVar(&req.EffectiveRole, "effective-role", "", "Acting-as: the role being assumed")
	f.BoolVar(&sessionID, "session-id", false, "Attach a random session_id")
	f.DurationVar(&ttl, "ttl", token.DefaultMintTTL, "Lifetime of the credential")
	f.DurationVar(&age, "age", 0, "Backdate issued_at by this much")
	f.BoolVar(&req.OmitIssuedAt, "omit-iat", false, "Leave issued_at out of the payload")
	f.BoolVar(&req.OmitExpiresAt, "omit-exp", false, "Leave exp out of the payload")
	return cmd
}

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshima-labs/paperctl/internal/auth"
	"github.com/oshima-labs/paperctl/internal/model"
)

var loginForce bool

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and cache the access token",
	Long: `Login signs in with the configured Supabase credentials and caches the
resulting token, so subsequent upload and extracts calls skip the auth
round-trip until the token expires.

Example:
  paperctl login
  paperctl login --force`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().BoolVar(&loginForce, "force", false, "discard any cached token and sign in fresh")
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.Timeout)
	defer cancel()

	_, tokens, err := newAPIClient(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Authenticating as %s...\n", cfg.Supabase.Email)

	var token *auth.Token
	if loginForce {
		token, err = tokens.ForceSignIn(ctx)
	} else {
		token, err = tokens.Token(ctx)
	}
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Printf("✓ Authenticated as %s\n", loginIdentity(cfg, token))
	if token.ExpiresIn > 0 {
		fmt.Printf("  Token valid for %ds\n", token.ExpiresIn)
	}
	return nil
}

// loginIdentity prefers the identity the auth server reports over the
// configured email.
func loginIdentity(cfg *model.Config, token *auth.Token) string {
	if token.User.Email != "" {
		return token.User.Email
	}
	return cfg.Supabase.Email
}

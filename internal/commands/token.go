package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"evalgo.org/fireedge/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage authentication tokens",
	Long:  `Issue gateway tokens for existing OpenNebula login tokens`,
}

var issueTokenCmd = &cobra.Command{
	Use:   "issue [user]",
	Short: "Issue a gateway JWT for an OpenNebula login token",
	Long: `Wrap an OpenNebula login token (from "oneuser token-create") in a JWT
signed with the configured jwt_secret. The gateway accepts it like a token
obtained from POST /api/auth.

Examples:
  # Token for oneadmin in the default zone
  fireedge token issue oneadmin --one-token 3d5c... --uid 0

  # Token valid for 8 hours in zone 100
  fireedge token issue alice --one-token 9a1f... --uid 5 --zone 100 --ttl 8h`,
	Args: cobra.ExactArgs(1),
	RunE: runIssueToken,
}

var (
	tokenOneToken string
	tokenUID      int
	tokenZone     string
	tokenTTL      time.Duration
	tokenSecret   string
)

func init() {
	issueTokenCmd.Flags().StringVar(&tokenOneToken, "one-token", "", "OpenNebula login token (required)")
	issueTokenCmd.Flags().IntVar(&tokenUID, "uid", -1, "OpenNebula user id")
	issueTokenCmd.Flags().StringVar(&tokenZone, "zone", "", "zone id (default: configured default zone)")
	issueTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default: jwt_expiration)")
	issueTokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "JWT secret (default: from config file)")
	_ = issueTokenCmd.MarkFlagRequired("one-token")

	tokenCmd.AddCommand(issueTokenCmd)
}

func runIssueToken(cmd *cobra.Command, args []string) error {
	user := args[0]

	issuerCfg := *cfg
	if tokenSecret != "" {
		issuerCfg.Security.JWTSecret = tokenSecret
	}
	if issuerCfg.Security.JWTSecret == "" {
		return fmt.Errorf("jwt_secret not found in config file and --secret not provided")
	}

	zone := tokenZone
	if zone == "" {
		zone = cfg.OpenNebula.DefaultZone
	}

	svc := auth.NewJWTService(&issuerCfg)
	token, expiresAt, err := svc.IssueToken(user, tokenUID, tokenOneToken, zone, svc.Lifetime(tokenTTL))
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User:    %s\n", user)
	fmt.Fprintf(out, "Zone:    %s\n", zone)
	fmt.Fprintf(out, "Expires: %s\n", expiresAt.Format(time.RFC3339))
	fmt.Fprintf(out, "\nToken:\n%s\n", token)
	return nil
}

package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Freeeeeet/slotswap/internal/config"
	"github.com/Freeeeeet/slotswap/internal/controller/rest"
)

var (
	tokenSubject string
	tokenName    string
	tokenEmail   string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for local development",
	Long: "Mint an HS256 bearer token signed with JWT_SECRET.\n" +
		"The subject is the external identity the API maps to a local user.",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := config.LoadJWTSecret()
		if err != nil {
			return err
		}

		token, err := rest.IssueToken([]byte(secret), uuid.NewString(), tokenSubject, tokenName, tokenEmail, tokenTTL)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "sub", "", "external identity (required)")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "email")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime, 0 for no expiry")
	_ = tokenCmd.MarkFlagRequired("sub")
}

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibast-solutions/ms-go-todo/app/token"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Inspect session and secret tokens",
}

var tokenInspectCmd = &cobra.Command{
	Use:   "inspect <token>",
	Short: "Verify a token with the configured secret and print its claims",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return inspectToken(cmd.OutOrStdout(), token.NewCodec(cfg.Session.Secret), args[0])
	},
}

func init() {
	tokenCmd.AddCommand(tokenInspectCmd)
	rootCmd.AddCommand(tokenCmd)
}

type inspectedToken struct {
	Kind      token.Kind `json:"kind"`
	Subject   string     `json:"sub"`
	ID        string     `json:"jti"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

func inspectToken(w io.Writer, codec *token.Codec, raw string) error {
	claims, err := codec.Decode(raw)
	if err != nil {
		return fmt.Errorf("token rejected: %w", err)
	}

	out := inspectedToken{
		Kind:      claims.Kind,
		Subject:   claims.Identity(),
		ID:        claims.ID,
		ExpiresAt: claims.Expiry().UTC(),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

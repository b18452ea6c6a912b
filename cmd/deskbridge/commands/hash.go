package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"deskbridge/internal/protocol/secure"
)

// hashCmd prints the login digest a peer expects for a challenge.
func hashCmd() *cobra.Command {
	var salt, challenge string
	cmd := &cobra.Command{
		Use:   "hash <password>",
		Short: "Compute the login digest for a salt and challenge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			salted := secure.SaltedHash(args[0], salt)
			digest := secure.ChallengeHash(salted[:], challenge)
			fmt.Printf("salted: %s\ndigest: %s\n", hex.EncodeToString(salted[:]), hex.EncodeToString(digest[:]))
			return nil
		},
	}
	cmd.Flags().StringVar(&salt, "salt", "", "salt from the peer's hash message")
	cmd.Flags().StringVar(&challenge, "challenge", "", "challenge from the peer's hash message")
	_ = cmd.MarkFlagRequired("salt")
	_ = cmd.MarkFlagRequired("challenge")
	return cmd
}

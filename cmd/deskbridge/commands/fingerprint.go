package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"deskbridge/internal/crypto"
)

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint [base64-key]",
		Short: "Print a public key fingerprint (default: the rendezvous server key)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key [32]byte
			switch {
			case len(args) == 1:
				k, err := crypto.DecodeKey32(args[0])
				if err != nil {
					return err
				}
				key = k
			case appCtx.ServerKey != nil:
				key = [32]byte(*appCtx.ServerKey)
			default:
				return errors.New("no key given and no server key configured (DESKBRIDGE_SERVER_KEY)")
			}
			fmt.Printf("Fingerprint: %s\n", crypto.Fingerprint(key[:]))
			return nil
		},
	}
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func peersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "peers",
		Short: "List peers with a remembered password",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := appCtx.Credentials.Peers()
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func forgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <peer-id>",
		Short: "Drop the remembered password for a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appCtx.Credentials.ForgetCredential(args[0]); err != nil {
				return fmt.Errorf("forgetting %q: %w", args[0], err)
			}
			fmt.Printf("Forgot %s\n", args[0])
			return nil
		},
	}
}

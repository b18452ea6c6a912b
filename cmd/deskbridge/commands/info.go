package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"deskbridge/internal/config"
	"deskbridge/internal/services/session"
)

func codecsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "codecs",
		Short: "Print the video codecs offered to peers by this headless build",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("hardware: none")
			for _, c := range session.AdvertisedCodecs(nil) {
				fmt.Println(c)
			}
			return nil
		},
	}
}

func envCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Describe the recognised environment variables",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Print(config.Usage())
			return nil
		},
	}
}

package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"deskbridge/internal/app"
	"deskbridge/internal/config"
)

var (
	envFile    string
	home       string
	passphrase string
	rendezvous string
	logLevel   string

	settings *config.Config
	log      *logrus.Entry
	appCtx   *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:          "deskbridge",
		Short:        "Headless RustDesk-compatible remote desktop client",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if home != "" {
				cfg.Home = home
			}
			if rendezvous != "" {
				cfg.Server.Rendezvous = rendezvous
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			l, err := app.NewLogger(cfg.Log)
			if err != nil {
				return err
			}
			settings = cfg
			log = logrus.NewEntry(l)

			appCtx, err = app.NewWire(app.Config{Settings: cfg, Passphrase: passphrase, Log: log})
			return err
		},
	}

	root.PersistentFlags().StringVar(&envFile, "env", ".env", "environment file to load before reading settings")
	root.PersistentFlags().StringVar(&home, "home", "", "credential cache dir (default ~/.deskbridge)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting remembered passwords")
	root.PersistentFlags().StringVar(&rendezvous, "rendezvous", "", "rendezvous server host[:port] or ws(s):// URL")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides DESKBRIDGE_LOG_LEVEL)")

	root.AddCommand(connectCmd(), hashCmd(), peersCmd(), forgetCmd(), fingerprintCmd(), codecsCmd(), envCmd())
	return root.Execute()
}

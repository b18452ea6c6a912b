package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"deskbridge/internal/app"
	"deskbridge/internal/metrics"
	"deskbridge/internal/services/session"
)

// connectCmd runs one session until interrupted, the optional duration
// elapses or the session ends.
func connectCmd() *cobra.Command {
	var (
		password    string
		remember    bool
		duration    time.Duration
		metricsAddr string
		snapshot    string
	)
	cmd := &cobra.Command{
		Use:   "connect <peer-id>",
		Short: "Connect to a peer and stream its desktop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer := args[0]
			if password == "" {
				password = os.Getenv("DESKBRIDGE_PASSWORD")
			}
			req := app.Request{PeerID: peer, Password: password, Remember: remember}
			var frame bytes.Buffer
			if snapshot != "" {
				req.FinalFrame = &frame
			}
			ctrl, err := appCtx.Open(req)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			if metricsAddr == "" {
				metricsAddr = settings.MetricsAddr
			}
			if metricsAddr != "" {
				srv := &http.Server{Addr: metricsAddr, Handler: metrics.New(ctrl, peer).Handler(), ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.WithError(err).Error("metrics server")
					}
				}()
				defer srv.Close()
				log.WithField("addr", metricsAddr).Info("serving metrics")
			}

			go logEvents(ctrl)

			errc := make(chan error, 1)
			go func() { errc <- ctrl.Run(context.Background()) }()

			var runErr error
			select {
			case runErr = <-errc:
			case <-ctx.Done():
				_ = ctrl.Close()
				runErr = <-errc
			}
			if snapshot != "" {
				writeSnapshot(snapshot, frame.Bytes())
			}

			st := ctrl.Stats()
			fmt.Printf("phase=%s sent=%d received=%d frames=%d decoded=%d dropped=%d audio=%d input=%d\n",
				st.Phase, st.Sent, st.Received, st.Render.FramesRendered,
				st.Video.Decoded, st.Video.Dropped, st.Audio.Decoded, st.Input.Sent)
			if runErr != nil {
				return fmt.Errorf("session with %s: %w", peer, runErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "peer password (or DESKBRIDGE_PASSWORD); empty uses a remembered one")
	cmd.Flags().BoolVar(&remember, "remember", false, "remember the password after a successful login")
	cmd.Flags().DurationVar(&duration, "duration", 0, "disconnect after this long (0 runs until interrupted)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "write the last rendered frame as PNG when the session ends")
	return cmd
}

func logEvents(ctrl *session.Controller) {
	for ev := range ctrl.Events() {
		switch ev.Kind {
		case session.EventPhase:
			log.WithField("phase", ev.Phase).Debug("phase changed")
		case session.EventPeerInfo:
			log.WithFields(logrus.Fields{"host": ev.Peer.Hostname, "platform": ev.Peer.Platform}).Info("connected")
		case session.EventDisplayChanged:
			log.WithFields(logrus.Fields{"width": ev.Width, "height": ev.Height}).Info("display changed")
		case session.EventGestureRequired:
			log.Warn("playback blocked until resumed")
		case session.EventDisconnected:
			log.WithError(ev.Err).Warn("disconnected")
		}
	}
}

func writeSnapshot(path string, png []byte) {
	if len(png) == 0 {
		log.Warn("no frame rendered, snapshot skipped")
		return
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		log.WithError(err).Warn("snapshot failed")
		return
	}
	log.WithField("path", path).Info("snapshot written")
}

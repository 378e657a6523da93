package cmd

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/abhisek/examprep/internal/httpapi"
	"github.com/abhisek/examprep/internal/identity"
	"github.com/abhisek/examprep/internal/logging"
)

const shutdownGrace = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the practice API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}
		if err := cfg.ValidateServer(); err != nil {
			return err
		}

		logger := logging.New(nil, cfg.LogLevel)
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc, err := open(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer svc.Close()

		apiCfg := httpapi.DefaultConfig()
		apiCfg.CORSOrigins = cfg.HTTP.CORSOrigins
		deps := httpapi.Deps{
			Exam:      svc.exam,
			Analytics: svc.analytics,
			Verifier:  identity.NewJWTVerifier(cfg.HTTP.JWTSecret),
			Logger:    logger,
		}
		if svc.explainer != nil {
			deps.Explainer = svc.explainer
		}
		api := httpapi.NewAPI(apiCfg, deps)
		defer api.Close()

		gin.SetMode(gin.ReleaseMode)
		logger.Info("serving", "addr", cfg.HTTP.Addr, "store", storeKind(cfg.DB),
			"explanations", svc.explainer != nil)
		if err := httpapi.Serve(ctx, cfg.HTTP.Addr, httpapi.NewRouter(api), shutdownGrace); err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		logger.Info("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides EXAMPREP_HTTP_ADDR)")
}

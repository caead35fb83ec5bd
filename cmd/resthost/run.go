package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"arcadia-hq/resthost/pkg/apierrors"
	"arcadia-hq/resthost/pkg/config"
	"arcadia-hq/resthost/pkg/listener"
	"arcadia-hq/resthost/pkg/ratelimit"
	"arcadia-hq/resthost/pkg/server"
	"arcadia-hq/resthost/pkg/telemetry/logging"
	"arcadia-hq/resthost/pkg/telemetry/outcome"
	"arcadia-hq/resthost/pkg/tlsmat"
)

var runFlags struct {
	listeners string
	logLevel  string
	dryRun    bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the REST host",
	Long: `Start the REST host with the specified configuration.

One HTTP engine is bound per resolved listener. All engines share the
rate limiter, TLS material, and outcome recorder, and shut down
together on SIGINT or SIGTERM.

Examples:
  # Start with default config
  resthost run

  # Start with custom config
  resthost run --config /etc/resthost/config.yaml

  # Override the listener directive
  resthost run --listeners "https://:8443,http://:8080"

  # Validate config without starting
  resthost run --dry-run`,
	RunE: runHost,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listeners, "listeners", "l", "", "override the listener directive")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runHost(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}

	if runFlags.listeners != "" {
		cfg.Server.Listeners = runFlags.listeners
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.LogLevel = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.LogLevel = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Telemetry.LogLevel,
		Format: cfg.Telemetry.LogFormat,
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	specs, err := resolveListeners(cfg)
	if err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		for _, spec := range specs {
			fmt.Printf("✓ Listener %s (%s) on %s\n", displayName(spec), spec.Scheme, spec.Addr())
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rotating, cleanup, err := buildTLS(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	limiter := ratelimit.New(ratelimit.Config{
		Enabled:                cfg.RateLimit.Enabled,
		PermitsPerSecond:       cfg.RateLimit.PermitsPerSecond,
		GlobalPermitsPerSecond: cfg.RateLimit.GlobalPermitsPerSecond,
		Mode:                   ratelimit.TrackingMode(cfg.RateLimit.Mode),
		DelayMillis:            cfg.RateLimit.DelayMillis,
		IdleTimeout:            cfg.RateLimit.IdleTimeout,
		SweepSchedule:          cfg.RateLimit.SweepSchedule,
	}, logger)

	recorder := outcome.NewRecorder(outcome.Config{
		WatchStatus: cfg.Telemetry.WatchStatus,
		Prefix:      cfg.Telemetry.MetricsPrefix,
		StaticTags:  cfg.Telemetry.Tags,
	}, prometheus.DefaultRegisterer, logger)

	translator := &apierrors.Translator{Debug: cfg.Server.Debug}

	srv, err := server.New(server.Options{
		Specs:           specs,
		Handler:         hostHandler(translator),
		TLS:             rotating,
		Limiter:         limiter,
		Recorder:        recorder,
		Translator:      translator,
		Logger:          logger,
		MetricsAddr:     cfg.Telemetry.MetricsListener,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Resthost v%s\n", Version)
	for _, spec := range specs {
		fmt.Printf("✓ Listener %s (%s) on %s\n", displayName(spec), spec.Scheme, spec.Addr())
	}
	if cfg.Telemetry.MetricsListener != "" {
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Telemetry.MetricsListener)
	}

	return srv.Start(ctx)
}

// resolveListeners turns the configured directives into listener specs.
func resolveListeners(cfg *config.Config) ([]listener.Spec, error) {
	supported := listener.SupportedProtocols()

	protocols, err := listener.ResolveProtocolMap(cfg.Server.ListenerProtocolMap, supported)
	if err != nil {
		return nil, err
	}

	var uris []string
	if strings.TrimSpace(cfg.Server.Listeners) != "" {
		uris = strings.Split(cfg.Server.Listeners, ",")
	}

	return listener.ResolveWithProtocolMap(uris, cfg.Server.Port, supported, listener.ProtocolHTTP, protocols)
}

// buildTLS assembles rotating TLS material when any listener needs it.
// The returned cleanup, when non-nil, releases the identity source.
func buildTLS(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*tlsmat.Rotating, func(), error) {
	if cfg.TLS.SpiffeSocket != "" {
		src, err := tlsmat.NewSpiffeSource(ctx, cfg.TLS.SpiffeSocket)
		if err != nil {
			return nil, nil, err
		}
		rotating, err := tlsmat.NewDynamic(ctx, src, tlsmat.DynamicConfig{
			TrustDomain:  cfg.TLS.TrustDomain,
			ClientAuth:   cfg.TLS.ClientAuth,
			SkipSNICheck: cfg.TLS.DisableSNICheck,
		}, logger)
		if err != nil {
			_ = src.Close()
			return nil, nil, err
		}
		return rotating, func() { _ = src.Close() }, nil
	}

	matCfg := tlsmat.Config{
		CertFile:     cfg.TLS.CertFile,
		KeyFile:      cfg.TLS.KeyFile,
		BundleFile:   cfg.TLS.BundleFile,
		TrustFile:    cfg.TLS.TrustFile,
		ClientAuth:   cfg.TLS.ClientAuth,
		SkipSNICheck: cfg.TLS.DisableSNICheck,
	}
	if matCfg.CertFile == "" && matCfg.BundleFile == "" {
		return nil, nil, nil
	}

	material, err := tlsmat.Build(matCfg)
	if err != nil {
		return nil, nil, err
	}
	rotating := tlsmat.NewRotating(material)

	if cfg.TLS.Watch {
		watcher, err := tlsmat.NewReloadWatcher(matCfg, rotating, logger)
		if err != nil {
			return nil, nil, err
		}
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				logger.Error("material reload watcher stopped", "error", err)
			}
		}()
	}

	return rotating, nil, nil
}

// hostHandler is the application surface the engines serve: liveness
// and readiness probes plus a structured not-found fallback.
func hostHandler(translator *apierrors.Translator) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		translator.WriteResponse(w, &apierrors.NotFoundError{
			Message: fmt.Sprintf("no resource at %s", r.URL.Path),
		})
	})

	return mux
}

func displayName(spec listener.Spec) string {
	if spec.Name == "" {
		return "(default)"
	}
	return spec.Name
}

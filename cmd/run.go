package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"authload/internal/cli"
	"authload/internal/config"
	"authload/internal/report"
	"authload/internal/scenario"
	"authload/internal/stats"
	"authload/internal/tui"
)

var runCmd = &cobra.Command{
	Use:       "run <workload>",
	Short:     "Run a workload against the target API",
	Long:      "Run a workload against the target API.\n\nWorkloads:\n  register-login  " + mustDesc(scenario.RegisterLoginName) + "\n  shared-token    " + mustDesc(scenario.SharedTokenName),
	Args:      cobra.ExactArgs(1),
	ValidArgs: scenario.Names(),
	RunE:      runWorkload,
}

func mustDesc(name string) string {
	d, err := scenario.Lookup(name)
	if err != nil {
		panic(err)
	}
	return d.Description
}

func init() {
	f := runCmd.Flags()
	f.Int("vus", 0, "virtual users (default per workload)")
	f.String("duration", "", "load duration, e.g. 30s or 1m (default per workload)")
	f.String("pace", "", "sleep between iterations of one VU (default 1s)")
	f.String("base-url", "", "target API base URL (default "+config.DefaultBaseURL+")")
	f.StringArray("threshold", nil, "threshold as 'metric=expr', repeatable; replaces the workload defaults")
	f.StringArrayP("env", "e", nil, "KEY=VALUE override, repeatable; wins over flags and environment")
	f.Int64("seed", 0, "random seed for VU sources (default from clock)")
	f.String("timeout", "", "per-request timeout (default 30s)")

	f.String("env-file", "", "load environment variables from a .env file")
	f.StringP("out", "o", "", "write the summary as JSON to this file")
	f.Bool("history", true, "record the run in the history database")
	f.Bool("tui", false, "show the live dashboard")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address during the run, e.g. :9464")

	viper.BindPFlag(config.KeyVUs, f.Lookup("vus"))
	viper.BindPFlag(config.KeyDuration, f.Lookup("duration"))
	viper.BindPFlag(config.KeyPace, f.Lookup("pace"))
	viper.BindPFlag(config.KeyBaseURL, f.Lookup("base-url"))
	viper.BindPFlag(config.KeyThresholds, f.Lookup("threshold"))
	viper.BindPFlag(config.KeyEnv, f.Lookup("env"))
	viper.BindPFlag(config.KeySeed, f.Lookup("seed"))
	viper.BindPFlag(config.KeyTimeout, f.Lookup("timeout"))
}

func runWorkload(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	envFile, _ := f.GetString("env-file")
	out, _ := f.GetString("out")
	keepHistory, _ := f.GetBool("history")
	useTUI, _ := f.GetBool("tui")
	metricsAddr, _ := f.GetString("metrics-addr")

	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}

	def, err := scenario.Lookup(args[0])
	if err != nil {
		return err
	}

	cfg, err := config.Build(viper.GetViper(), def)
	if err != nil {
		return err
	}

	log, err := newLogger(logLevel, logFormat)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sinks []stats.Sink
	if metricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		sinks = append(sinks, stats.NewPromSink(reg))
		srv := serveMetrics(metricsAddr, reg, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	s := &cli.Session{
		Def:     def,
		Cfg:     cfg,
		Metrics: stats.NewCollector(sinks...),
		Log:     log,
		Out:     out,
		W:       cmd.OutOrStdout(),
	}

	if keepHistory {
		store, err := openHistory()
		if err != nil {
			log.Warn("run history disabled", zap.Error(err))
		} else {
			defer store.Close()
			s.Store = store
		}
	}

	var code int
	if useTUI {
		if code, err = tui.Run(ctx, s); err != nil {
			return &exitError{code: code, err: err}
		}
	} else {
		code = cli.Start(ctx, s)
	}
	if code != report.ExitOK {
		return &exitError{code: code}
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))
	return srv
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"authload/internal/dummy"
)

var dummyCmd = &cobra.Command{
	Use:   "dummy",
	Short: "Serve an in-memory /register, /login, /users API to run against",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		port, _ := f.GetInt("port")
		failRate, _ := f.GetFloat64("fail-rate")
		latency, _ := f.GetDuration("latency")

		log, err := newLogger(logLevel, logFormat)
		if err != nil {
			return err
		}
		defer log.Sync()

		srv := dummy.Start(dummy.ServerConfig{Port: port, FailRate: failRate, Latency: latency}, log)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	dummyCmd.Flags().IntP("port", "p", 3002, "port to listen on")
	dummyCmd.Flags().Float64("fail-rate", 0, "fraction of requests answered with 500")
	dummyCmd.Flags().Duration("latency", 0, "random extra latency per request, up to this value")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iidesho/auditflow/config"
	"github.com/iidesho/auditflow/document/mongo"
	"github.com/iidesho/auditflow/metrics"
	"github.com/iidesho/auditflow/scheduletasks"
	"github.com/iidesho/auditflow/tasks"
	"github.com/iidesho/auditflow/webserver"
	"github.com/iidesho/bragi/sbragi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler and the health/metrics endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, settings)
	},
}

func init() {
	flags := runCmd.Flags()
	flags.Duration("period", 10*time.Second, "time between scheduler ticks")
	flags.Uint16("port", 3030, "port of the health and metrics endpoints")
	flags.Duration("shutdown-timeout", 30*time.Second, "how long to wait for detached writes on shutdown")
	viper.BindPFlag(config.KeySchedulerPeriod, flags.Lookup("period"))
	viper.BindPFlag(config.KeyWebserverPort, flags.Lookup("port"))
	viper.BindPFlag(config.KeyShutdownTimeout, flags.Lookup("shutdown-timeout"))
}

func run(ctx context.Context, c config.Config) error {
	metrics.Init()
	if err := metrics.InitPipeline(); err != nil {
		return err
	}
	ws := webserver.Init(c.WebserverPort)

	buf, closeBuf, err := openBuffer(ctx, c, ws)
	if err != nil {
		return err
	}
	defer closeBuf()

	docs, err := mongo.Connect(ctx, c.MongoURI, c.MongoDatabase)
	if err != nil {
		return err
	}
	defer docs.Close(context.Background())
	ws.AddCheck("documents", webserver.PingCheck(pingTimeout, docs.Ping))

	tenants, closeTenants, err := openTenants(ctx, c, ws)
	if err != nil {
		return err
	}
	defer closeTenants()

	s := scheduletasks.New(c.SchedulerPeriod)
	s.Register(
		tasks.NewLoginLogFlush(buf, docs),
		tasks.NewOperationLogFlush(buf, docs),
		tasks.NewTenantExpiry(tenants),
	)
	s.Start()

	go func() {
		sbragi.WithError(ws.Run()).Error("while running webserver", "port", c.WebserverPort)
	}()
	if c.MetricsPushURL != "" {
		go pushMetrics(ctx, c.MetricsPushURL, c.SchedulerPeriod)
	}

	<-ctx.Done()
	sbragi.Info("shutting down")
	err = s.Shutdown(c.ShutdownTimeout)
	sbragi.WithError(err).Warning("detached work did not finish before shutdown timeout")
	sbragi.WithError(ws.Shutdown(pingTimeout)).Error("while stopping webserver")
	return nil
}

func pushMetrics(ctx context.Context, url string, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			sbragi.WithError(metrics.Push(url, "auditflow")).Warning("final metrics push")
			return
		case <-ticker.C:
			sbragi.WithError(metrics.Push(url, "auditflow")).Warning("pushing metrics", "url", url)
		}
	}
}

// Command mojofs-disk runs the single-node storage engine over one
// local disk root: volume lifecycle, xl.meta versioning, and the
// bitrot-checked part layout, fronted by a Prometheus metrics endpoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/minio/cli"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mojofs/mojofs/internal/config"
	"github.com/mojofs/mojofs/internal/ecstore/disk"
	"github.com/mojofs/mojofs/internal/ecstore/disk/diskmetrics"
	"github.com/mojofs/mojofs/internal/ecstore/disk/endpoint"
	"github.com/mojofs/mojofs/internal/logger"
)

func main() {
	app := cli.NewApp()
	app.Name = "mojofs-disk"
	app.Usage = "serve one local disk of a mojofs erasure set"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "root", Usage: "disk root path", Required: true},
		cli.StringFlag{Name: "metrics-address", Value: ":9100", Usage: "address to serve /metrics on"},
		cli.IntFlag{Name: "pool-idx", Value: -1, Usage: "pool coordinate for format verification"},
		cli.IntFlag{Name: "set-idx", Value: -1, Usage: "set coordinate for format verification"},
		cli.IntFlag{Name: "disk-idx", Value: -1, Usage: "disk coordinate for format verification"},
		cli.IntFlag{Name: "drive-count", Value: 1, Usage: "drives in the set, for storage-class parity defaults"},
		cli.BoolFlag{Name: "allow-root-disk", Usage: "permit serving a disk root that shares a device with the OS root filesystem"},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	ep, err := endpoint.New(c.String("root"))
	if err != nil {
		return fmt.Errorf("invalid disk root: %w", err)
	}
	ep.SetPoolIndex(c.Int("pool-idx"))
	ep.SetSetIndex(c.Int("set-idx"))
	ep.SetDiskIndex(c.Int("disk-idx"))

	sc, err := config.Resolve(c.Int("drive-count"))
	if err != nil {
		return fmt.Errorf("resolve storage class: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := disk.Open(ctx, ep)
	if err != nil {
		return fmt.Errorf("open disk: %w", err)
	}
	defer d.Close()

	if !c.Bool("allow-root-disk") {
		if rootErr := d.ValidateNotRootDisk(); rootErr != nil {
			return fmt.Errorf("%s (pass --allow-root-disk to override): %w", ep.FilePath(), rootErr)
		}
	}

	logger.Info(ctx, "disk engine ready",
		zap.String("root", ep.FilePath()),
		zap.Int("standard_parity", sc.StandardParity),
		zap.Int("rrs_parity", sc.RRSParity),
		zap.String("optimize", sc.Optimize.String()),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(diskmetrics.NewCollector(d))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: c.String("metrics-address"), Handler: mux}

	go func() {
		if serveErr := srv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Warn(ctx, "metrics server stopped", zap.Error(serveErr))
		}
	}()

	<-ctx.Done()
	logger.Info(context.Background(), "shutting down")
	_ = srv.Close()
	_ = logger.Sync()
	return nil
}

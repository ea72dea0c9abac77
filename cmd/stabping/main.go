// Command stabping runs the probe/recorder service: it ticks a Worker per
// configured probe kind, appends results through a single Dispatcher, and
// serves the HTTP front-end over the on-disk triad each Manager owns.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-envparse"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pg9182/ip2x"
	"github.com/spf13/pflag"

	"github.com/jordanbertasso/stabping-go/internal/config"
	"github.com/jordanbertasso/stabping-go/internal/httpapi"
	"github.com/jordanbertasso/stabping-go/internal/metricsx"
	"github.com/jordanbertasso/stabping-go/internal/probe"
	"github.com/jordanbertasso/stabping-go/internal/probedb"
	"github.com/jordanbertasso/stabping-go/internal/probelog"
)

var opt struct {
	Help   bool
	Config string
}

func init() {
	pflag.BoolVarP(&opt.Help, "help", "h", false, "Show this help text")
	pflag.StringVarP(&opt.Config, "config", "c", "", "Path to stabping_config.json (default: discovered, see discover.go)")
}

func main() {
	pflag.Parse()

	if pflag.NArg() > 1 || opt.Help {
		fmt.Printf("usage: %s [options] [env_file]\n\noptions:\n%s\n", os.Args[0], pflag.CommandLine.FlagUsages())
		if opt.Help {
			os.Exit(2)
		}
		os.Exit(0)
	}

	var e []string
	if pflag.NArg() == 0 {
		e = os.Environ()
	} else {
		x, err := readEnv(pflag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: read env file: %v\n", err)
			os.Exit(1)
		}
		e = x
	}

	var c config.Config
	if err := c.UnmarshalEnv(e, false); err != nil {
		fmt.Fprintf(os.Stderr, "error: parse config: %v\n", err)
		os.Exit(1)
	}
	if err := c.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid config: %v\n", err)
		os.Exit(1)
	}

	discovery, err := discoverConfigFile(opt.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: config-file discovery: %v\n", err)
	}

	logger, reopen, err := probelog.Configure(&c)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: initialize logging: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		logger.Fatal().Err(err).Str("data_dir", c.DataDir).Msg("create data directory")
	}

	var managers []*probe.Manager
	for _, kind := range probe.AllKinds {
		mgr, err := probe.NewManager(c.DataDir, kind)
		if err != nil {
			logger.Fatal().Err(err).Str("kind", kind.Name()).Msg("load manager")
		}
		managers = append(managers, mgr)
		defer mgr.Close()
	}

	broadcaster := probe.NewBroadcaster()

	var archival probe.ArchivalSink
	if c.ArchivalDB != "" {
		db, err := probedb.Open(c.ArchivalDB)
		if err != nil {
			logger.Error().Err(err).Msg("open archival sink, continuing without it")
		} else {
			archival = db
			defer db.Close()
		}
	}

	dispatcher := probe.NewDispatcher(managers, broadcaster, logger.With().Str("component", "dispatcher").Logger())
	dispatcher.Archival = archival

	dispatch := make(chan probe.TimePackage, 64)
	go dispatcher.Run(dispatch)

	var geoLocator *metricsx.AddrGeoLocator
	if c.GeoDB != "" {
		f, err := os.Open(c.GeoDB)
		if err != nil {
			logger.Error().Err(err).Str("geo_db", c.GeoDB).Msg("open geo database, continuing without it")
		} else {
			db, err := ip2x.New(f)
			if err != nil {
				logger.Error().Err(err).Str("geo_db", c.GeoDB).Msg("parse geo database, continuing without it")
				f.Close()
			} else {
				geoLocator = metricsx.NewAddrGeoLocator(db)
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, mgr := range managers {
		w := probe.NewWorker(mgr, dispatch, logger.With().Str("component", "worker").Str("kind", mgr.Kind.Name()).Logger())
		w.GeoLocator = geoLocator
		go w.Run(ctx)
	}

	wsPort := uint16(0)
	if discovery != nil {
		wsPort = discovery.WSPort
	}
	api := httpapi.NewHandler(managers, wsPort, logger.With().Str("component", "http").Logger())

	srv := &http.Server{
		Addr:    firstOr(c.Addr, ":8080"),
		Handler: api.Middleware(api),
	}

	hch := make(chan os.Signal, 1)
	signal.Notify(hch, syscall.SIGHUP)
	go func() {
		for range hch {
			if reopen != nil {
				reopen()
			}
			logger.Info().Msg("reopened log file on SIGHUP")
		}
	}()

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	logger.Info().Str("addr", srv.Addr).Msg("stabping listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("http server")
	}
}

func firstOr(addrs []string, def string) string {
	if len(addrs) == 0 {
		return def
	}
	return addrs[0]
}

func readEnv(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := envparse.Parse(f)
	if err != nil {
		return nil, err
	}

	var r []string
	for k, v := range m {
		r = append(r, k+"="+v)
	}
	return r, nil
}

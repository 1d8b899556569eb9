/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fsnotify/fsnotify"
	liblog "github.com/nabbar/golib/logger"
	logcfg "github.com/nabbar/golib/logger/config"
	loglvl "github.com/nabbar/golib/logger/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nabbar/prefork"
	"github.com/nabbar/prefork/metrics"
	"github.com/nabbar/prefork/supervisor"
)

var (
	flagConfig        string
	flagLogLevel      string
	flagDeny          bool
	flagUpper         bool
	flagMetricsListen string

	vpr = viper.New()

	rootCmd = &cobra.Command{
		Use:     "preforkd-echo",
		Short:   "prefork echo server example",
		Long:    "An echo server driven by the prefork worker-pool framework, over TCP or UDP.",
		Version: prefork.Release,
		RunE:    run,
	}
)

func init() {
	f := rootCmd.Flags()
	d := prefork.DefaultConfig()

	f.StringVarP(&flagConfig, "config", "c", "", "config file holding a 'prefork:' block (yaml/json/toml)")
	f.StringVar(&flagLogLevel, "log-level", "info", "minimal log level (debug, info, warning, error)")
	f.BoolVar(&flagDeny, "deny", false, "deny every connection with an NO answer instead of echoing")
	f.BoolVar(&flagUpper, "upper", false, "uppercase the payload before echoing it back")
	f.StringVar(&flagMetricsListen, "metrics-listen", "", "serve Prometheus metrics on this host:port (supervisor only)")

	f.Int("max-servers", d.MaxServers, "maximum number of workers")
	f.Int("min-servers", d.MinServers, "minimum number of workers")
	f.Int("min-spare-servers", d.MinSpareServers, "minimum number of idle workers (0 = never keep a spare)")
	f.Int("max-spare-servers", d.MaxSpareServers, "maximum number of idle workers")
	f.Int("max-requests", d.MaxRequests, "requests served before a worker is recycled (0 = unbounded)")
	f.String("bind-ip", d.BindIP, "address to bind")
	f.Int("port", d.Port, "port to bind (0 = kernel-assigned)")
	f.String("protocol", d.Protocol, "tcp or udp")
	f.Int("listen", d.Listen, "TCP listen backlog")
	f.Bool("reuse-port", d.ReusePort, "bind one SO_REUSEPORT socket per worker")

	for flag, key := range map[string]string{
		"max-servers":       "prefork.maxServers",
		"min-servers":       "prefork.minServers",
		"min-spare-servers": "prefork.minSpareServers",
		"max-spare-servers": "prefork.maxSpareServers",
		"max-requests":      "prefork.maxRequests",
		"bind-ip":           "prefork.bindIp",
		"port":              "prefork.port",
		"protocol":          "prefork.protocol",
		"listen":            "prefork.listen",
		"reuse-port":        "prefork.reusePort",
	} {
		if err := vpr.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func newLogger(ctx context.Context) (liblog.Logger, error) {
	log := liblog.New(ctx)

	lvl := loglvl.Parse(flagLogLevel)
	log.SetLevel(lvl)

	if err := log.SetOptions(&logcfg.Options{
		Stdout: &logcfg.OptionsStd{
			DisableStack:     true,
			DisableTimestamp: false,
			DisableColor:     true,
		},
	}); err != nil {
		return nil, err
	}

	return log, nil
}

func loadConfig(log liblog.Logger) (prefork.Config, error) {
	if flagConfig != "" {
		vpr.SetConfigFile(flagConfig)
		if err := vpr.ReadInConfig(); err != nil {
			return prefork.Config{}, err
		}

		vpr.OnConfigChange(func(e fsnotify.Event) {
			log.Entry(loglvl.InfoLevel, "config file changed, applying on next reload").
				FieldAdd("file", e.Name).Log()
		})
		vpr.WatchConfig()
	}

	cfg, err := prefork.ConfigFromViper(vpr, "prefork")
	if err != nil {
		return prefork.Config{}, err
	}

	return cfg, nil
}

// reloadHooks overrides the hang-up handler to re-read the config
// file: resizable settings cannot change on a live pool, so the
// handler only logs that the re-read bounds apply on the next start.
type reloadHooks struct {
	supervisor.Defaults
	log liblog.FuncLog
}

func (h reloadHooks) HupHandler(*supervisor.Supervisor) {
	l := h.log()

	if err := vpr.ReadInConfig(); err != nil {
		l.Entry(loglvl.ErrorLevel, "config reload failed").ErrorAdd(true, err).Log()
		return
	}

	l.Entry(loglvl.InfoLevel, "config reloaded, pool bounds apply on next start").Log()
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	log, err := newLogger(ctx)
	if err != nil {
		return err
	}
	fctLog := func() liblog.Logger { return log }

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}

	mgr := prefork.New(cfg, &echoChild{
		log:   fctLog,
		deny:  flagDeny,
		upper: flagUpper,
	})
	mgr.SetLogger(fctLog)

	if !supervisor.IsChildProcess() {
		mgr.SetSupervisorHooks(reloadHooks{log: fctLog})

		pool, err := metrics.New(prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
		mgr.SetSnapshotObserver(pool.Observe)

		if flagMetricsListen != "" {
			go serveMetrics(log, flagMetricsListen)
		}
	}

	if err := mgr.Run(ctx); err != nil {
		log.Entry(loglvl.ErrorLevel, "server terminated").ErrorAdd(true, err).Log()
		return err
	}

	if addr, ok := mgr.BoundAddress(); ok {
		log.Entry(loglvl.DebugLevel, "released").FieldAdd("addr", addr.String()).Log()
	}

	return nil
}

func serveMetrics(log liblog.Logger, listen string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: listen, Handler: mux}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Entry(loglvl.ErrorLevel, fmt.Sprintf("metrics listener on %s failed", listen)).ErrorAdd(true, err).Log()
	}
}

/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// The tuptime command watches configured services and records their uptime.
// One binary serves both roles: operator actions run in the foreground, and
// the detached daemon re-enters through main with the environment marker set.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/carverauto/tuptime/pkg/config"
	"github.com/carverauto/tuptime/pkg/daemon"
	"github.com/carverauto/tuptime/pkg/logger"
	"github.com/carverauto/tuptime/pkg/metrics"
	"github.com/carverauto/tuptime/pkg/models"
	"github.com/carverauto/tuptime/pkg/report"
	"github.com/carverauto/tuptime/pkg/version"
)

const notYetObserved = "not yet observed"

// Usage mistakes exit with code 2, everything else with 1.
var errUsage = errors.New("invalid usage")

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		if errors.Is(err, errUsage) {
			os.Exit(2)
		}

		os.Exit(1)
	}
}

type cliFlags struct {
	addName    string
	removeName string
	showConfig bool
	showVer    bool
	daemonCmd  string
	showReport bool

	serviceType string
	target      string
	port        int
	location    string
	username    string
	password    string
	interval    int
	base        string
}

func parseFlags() *cliFlags {
	f := &cliFlags{}

	flag.StringVar(&f.addName, "add", "", "add a service to watch (requires -service and -target)")
	flag.StringVar(&f.removeName, "remove", "", "remove a watched service by name")
	flag.BoolVar(&f.showConfig, "config", false, "show the configured services")
	flag.BoolVar(&f.showVer, "version", false, "show the tuptime version")
	flag.StringVar(&f.daemonCmd, "daemon", "", "control the daemon: start, stop or status")
	flag.BoolVar(&f.showReport, "report", false, "show per-service availability")

	flag.StringVar(&f.serviceType, "service", "", "service type: ICMP, HTTP, SMB, FTP or SSH")
	flag.StringVar(&f.target, "target", "", "host, address or URL to watch")
	flag.IntVar(&f.port, "port", 0, "service port (protocol default when omitted)")
	flag.StringVar(&f.location, "location", "", "path, share or directory to verify")
	flag.StringVar(&f.username, "username", "", "username for SMB, FTP or SSH probes")
	flag.StringVar(&f.password, "password", "", "password for SMB, FTP or SSH probes")
	flag.IntVar(&f.interval, "interval", 60, "seconds between probes")
	flag.StringVar(&f.base, "base", "", "override the tuptime base directory")

	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `tuptime: watch services and record their uptime

Usage:
  tuptime -add NAME -service TYPE -target HOST [options]
  tuptime -remove NAME
  tuptime -config
  tuptime -daemon start|stop|status
  tuptime -report
  tuptime -version

Options:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	return f
}

// actions counts how many of the mutually exclusive action flags were set.
func (f *cliFlags) actions() int {
	n := 0

	for _, set := range []bool{
		f.addName != "",
		f.removeName != "",
		f.showConfig,
		f.showVer,
		f.daemonCmd != "",
		f.showReport,
	} {
		if set {
			n++
		}
	}

	return n
}

func run() error {
	flags := parseFlags()

	paths, err := resolvePaths(flags.base)
	if err != nil {
		return err
	}

	if os.Getenv(daemon.EnvMarker) == "1" {
		return runDaemon(paths)
	}

	switch n := flags.actions(); {
	case n == 0:
		flag.Usage()
		return nil
	case n > 1:
		return fmt.Errorf("%w: choose exactly one of -add, -remove, -config, -version, -daemon or -report", errUsage)
	}

	if flags.showVer {
		fmt.Printf("tuptime %s\n", version.GetFullVersion())
		return nil
	}

	log, err := logger.New(&logger.Config{Level: "warn", Output: "stderr"})
	if err != nil {
		return err
	}

	registry := config.NewRegistry(paths, log)
	if err := registry.Ensure(); err != nil {
		return err
	}

	switch {
	case flags.addName != "":
		return addService(registry, flags)
	case flags.removeName != "":
		return removeService(registry, flags.removeName)
	case flags.showConfig:
		return printServices(registry, paths)
	case flags.daemonCmd != "":
		return controlDaemon(daemon.New(paths, registry, log), flags.daemonCmd)
	default:
		return printReport(registry, paths, log)
	}
}

func resolvePaths(base string) (config.Paths, error) {
	if base != "" {
		return config.PathsAt(base), nil
	}

	return config.DefaultPaths()
}

// runDaemon is the foreground body of the detached child. Diagnostics go to
// the daemon log file; the child owns no terminal.
func runDaemon(paths config.Paths) error {
	if err := paths.Ensure(); err != nil {
		return err
	}

	log, err := logger.NewComponent("daemon", &logger.Config{Level: "info", Output: paths.DaemonLog})
	if err != nil {
		return err
	}

	registry := config.NewRegistry(paths, log)

	return daemon.New(paths, registry, log).Run(context.Background())
}

func addService(registry *config.Registry, flags *cliFlags) error {
	if flags.serviceType == "" {
		return fmt.Errorf("%w: -add requires -service", errUsage)
	}

	if flags.target == "" {
		return fmt.Errorf("%w: -add requires -target", errUsage)
	}

	serviceType, err := models.ParseServiceType(flags.serviceType)
	if err != nil {
		return err
	}

	svc := models.ServiceConfig{
		Name:        flags.addName,
		ServiceType: serviceType,
		Target:      flags.target,
		Port:        flags.port,
		Location:    flags.location,
		Username:    flags.username,
		Password:    flags.password,
		Interval:    models.Duration(time.Duration(flags.interval) * time.Second),
	}

	if err := registry.Add(svc); err != nil {
		return err
	}

	fmt.Printf("Added %s service %q (%s), probed every %ds\n", serviceType, svc.Name, svc.Target, flags.interval)

	return nil
}

func removeService(registry *config.Registry, name string) error {
	if err := registry.Remove(name); err != nil {
		return err
	}

	fmt.Printf("Removed service %q\n", name)

	return nil
}

func printServices(registry *config.Registry, paths config.Paths) error {
	services, err := registry.List()
	if err != nil {
		return err
	}

	fmt.Printf("Configuration: %s\n", paths.ConfigFile)

	if len(services) == 0 {
		fmt.Println("No services configured.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tTARGET\tPORT\tINTERVAL\tLOCATION\tUSERNAME")

	for i := range services {
		svc := services[i]

		port := "-"
		if p := svc.EffectivePort(); p > 0 {
			port = fmt.Sprintf("%d", p)
		}

		username := svc.Username
		if username == "" {
			username = "-"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%ds\t%s\t%s\n",
			svc.Name, svc.ServiceType, svc.Target, port, svc.Interval.Seconds(), svc.Location, username)
	}

	return w.Flush()
}

func controlDaemon(d *daemon.Daemon, action string) error {
	switch action {
	case "start":
		pid, err := d.Start()
		if err != nil {
			return err
		}

		fmt.Printf("tuptime daemon started (pid %d)\n", pid)

		return nil
	case "stop":
		if err := d.Stop(); err != nil {
			if errors.Is(err, daemon.ErrNotRunning) {
				fmt.Println("tuptime daemon is not running")
				return nil
			}

			return err
		}

		fmt.Println("tuptime daemon stopped")

		return nil
	case "status":
		status, err := d.CurrentStatus()
		if err != nil {
			return err
		}

		switch {
		case status.Running && !status.Since.IsZero():
			fmt.Printf("tuptime daemon is running (pid %d, up %s)\n",
				status.PID, time.Since(status.Since).Round(time.Second))
		case status.Running:
			fmt.Printf("tuptime daemon is running (pid %d)\n", status.PID)
		case status.HealedStale:
			fmt.Println("tuptime daemon is not running (removed stale pid file)")
		default:
			fmt.Println("tuptime daemon is not running")
		}

		return nil
	default:
		return fmt.Errorf("%w: unknown daemon action %q (want start, stop or status)", errUsage, action)
	}
}

func printReport(registry *config.Registry, paths config.Paths, log logger.Logger) error {
	store := metrics.NewStore(paths.MetricsDir, log)

	rows, err := report.NewReporter(registry, store).Rows()
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		fmt.Println("No services configured.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tTYPE\tTARGET\tSTATE\tUP%\tDOWN%\tLAST DOWNTIME")

	for i := range rows {
		row := rows[i]

		state := "DOWN"
		if row.IsUp {
			state = "UP"
		}

		last := notYetObserved
		if row.LastDowntime != nil {
			last = row.LastDowntime.UTC().Format(time.RFC3339)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%.2f\t%s\n",
			row.Name, row.ServiceType, row.Target, state, row.UpPercent, row.DownPercent, last)
	}

	return w.Flush()
}

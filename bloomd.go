// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"runtime/pprof"
	"strings"

	"github.com/bloomdb/bloomd/internal/limits"
	"github.com/bloomdb/bloomd/internal/version"
)

var cfg *config

// bloomdMain is the real main function for bloomd.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is called.
func bloomdMain() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	tcfg, _, err := loadConfig(appName)
	if err != nil {
		usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
		fmt.Fprintln(os.Stderr, err)
		var e errSuppressUsage
		if !errors.As(err, &e) {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return err
	}
	cfg = tcfg
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	// Get a context that will be canceled when a shutdown signal has been
	// triggered either from an OS signal such as SIGINT (Ctrl+C) or from
	// another subsystem such as the RPC server.
	ctx := shutdownListener()
	defer bmdLog.Info("Shutdown complete")

	// Show version and home dir at startup.
	bmdLog.Infof("Version %s (Go version %s %s/%s)", version.String(),
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
	bmdLog.Infof("Home dir: %s", cfg.HomeDir)
	if cfg.NoFileLogging {
		bmdLog.Info("File logging disabled")
	}

	// Bulk filter mutations can cause bursty allocations.  This limits the
	// garbage collector from excessively overallocating during bursts.  It
	// does this by tweaking the target GC percent and soft memory limit
	// depending on the version of the Go runtime.
	//
	// Starting with Go 1.19, a soft upper memory limit is imposed and the
	// target GC percentage is left at the default value to significantly
	// reduce the number of GC cycles thereby reducing the amount of CPU time
	// spent doing garbage collection.
	//
	// For versions of Go prior to 1.19, the ability to set a soft upper memory
	// limit was not available, so the GC percentage is lowered instead which
	// has the effect of preventing overallocations at the expense of more
	// frequent GC cycles.
	if limits.SupportsMemoryLimit {
		if cfg.MemLimit > 0 {
			softMemLimit := int64(cfg.MemLimit) * (1 << 20)
			limits.SetMemoryLimit(softMemLimit)
			bmdLog.Infof("Soft memory limit: %s", humanizeBytes(softMemLimit))
		}
	} else {
		debug.SetGCPercent(20)
	}

	// Enable http profile server if requested.  Note that since the server may
	// be started now or dynamically started and stopped later, the stop call is
	// always deferred to ensure it is always stopped during process shutdown.
	var profiler profileServer
	defer profiler.Stop()
	if cfg.Profile != "" {
		const allowNonLoopback = true
		if err := profiler.Start(cfg.Profile, allowNonLoopback); err != nil {
			bmdLog.Warnf("unable to start profile server: %v", err)
			return err
		}
	}

	// Write cpu profile if requested.
	if cfg.CPUProfile != "" {
		f, err := os.Create(cfg.CPUProfile)
		if err != nil {
			bmdLog.Errorf("Unable to create cpu profile: %v", err.Error())
			return err
		}
		pprof.StartCPUProfile(f)
		defer f.Close()
		defer pprof.StopCPUProfile()
	}

	// Write mem profile if requested.
	if cfg.MemProfile != "" {
		f, err := os.Create(cfg.MemProfile)
		if err != nil {
			bmdLog.Errorf("Unable to create mem profile: %v", err)
			return err
		}
		defer f.Close()
		defer pprof.WriteHeapProfile(f)
	}

	// Return now if a shutdown signal was triggered.
	if shutdownRequested(ctx) {
		return nil
	}

	// Load the filter database.  Growth events are relayed to the websocket
	// clients of the RPC server once it is running.
	var svr *server
	store, err := loadFilterDB(func(name string, numFilters int, newCapacity uint64) {
		svr.notifyFilterGrowth(name, numFilters, newCapacity)
	})
	if err != nil {
		bmdLog.Errorf("%v", err)
		return err
	}
	defer func() {
		// Ensure the database is sync'd and closed on shutdown.
		bmdLog.Infof("Gracefully shutting down the filter database...")
		store.Close()
	}()

	// Return now if a shutdown signal was triggered.
	if shutdownRequested(ctx) {
		return nil
	}

	// Create server.
	svr, err = newServer(store)
	if err != nil {
		bmdLog.Errorf("Unable to start server: %v", err)
		return err
	}

	if shutdownRequested(ctx) {
		return nil
	}

	// Run the server.  This will block until the context is cancelled which
	// happens when the interrupt signal is received from an OS signal or
	// shutdown is requested through one of the subsystems such as the RPC
	// server.
	svr.Run(ctx)
	bmdLog.Infof("Server shutdown complete")
	return nil
}

func main() {
	// Up some limits.
	if err := limits.SetLimits(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set limits: %v\n", err)
		os.Exit(1)
	}

	// Work around defer not working after os.Exit()
	if err := bloomdMain(); err != nil {
		os.Exit(1)
	}
}

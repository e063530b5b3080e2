// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"path/filepath"

	"github.com/bloomdb/bloomd/internal/filterdb"
)

// filterDbPath returns the path to the filter database.
func filterDbPath() string {
	return filepath.Join(cfg.DataDir, defaultDbName)
}

// loadFilterDB loads (or creates when needed) the filter database and returns
// a handle to it.  The provided callback is invoked whenever a mutation causes
// the chain of a stored filter to grow.
func loadFilterDB(onGrowth func(name string, numFilters int, newCapacity uint64)) (*filterdb.Store, error) {
	dbPath := filterDbPath()
	bmdLog.Infof("Loading filter database from '%s'", dbPath)
	store, err := filterdb.Open(dbPath, &filterdb.Options{
		DefaultErrorRate: cfg.DefaultFPRate,
		OnGrowth:         onGrowth,
	})
	if err != nil {
		return nil, err
	}

	bmdLog.Info("Filter database loaded")
	return store, nil
}

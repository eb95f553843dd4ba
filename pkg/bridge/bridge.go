// Package bridge provides the public API for the asynchronous SQLite bridge.
// It exposes the constructor and handle types while keeping the dispatcher
// and engine bindings internal.
//
// Example:
//
//	b, err := bridge.New(types.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer b.Close(context.Background())
//
//	b.Open(ctx, "app.db", func(db *bridge.Database, code types.Code, err error) {
//	    // runs on the bridge's event loop
//	})
package bridge

import (
	"github.com/mesh-intelligence/sqlbridge/internal/bridge"
	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

// Version is the module release.
const Version = "0.1.0"

type (
	// Bridge owns the event loop and the worker pool.
	Bridge = bridge.Bridge
	// Database is a connection handle.
	Database = bridge.Database
	// Statement is a prepared statement handle.
	Statement = bridge.Statement
	// ExecResult reports the effect of Database.Execute.
	ExecResult = bridge.ExecResult
	// OpenFunc receives the outcome of Bridge.Open.
	OpenFunc = bridge.OpenFunc
	// StatusFunc receives the status of a close or step.
	StatusFunc = bridge.StatusFunc
	// QueryFunc receives a materialized result set.
	QueryFunc = bridge.QueryFunc
)

// New creates a bridge and starts its loop and workers.
func New(cfg types.Config) (*Bridge, error) {
	return bridge.New(cfg)
}

// EngineVersion returns the SQLite library version.
func EngineVersion() string {
	return bridge.EngineVersion()
}

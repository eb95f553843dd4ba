package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/sqlbridge/internal/paths"
	"github.com/mesh-intelligence/sqlbridge/pkg/bridge"
	"github.com/mesh-intelligence/sqlbridge/pkg/types"
)

// env is the resolved environment of one command run.
type env struct {
	configDir string
	dbPath    string
	settings  settings
	log       *zap.Logger
}

// loadEnv resolves directories and configuration and installs the logger.
func loadEnv() (*env, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return nil, sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	s, err := loadSettings(configDir)
	if err != nil {
		return nil, userError(err)
	}
	dbPath, err := paths.ResolveDatabasePath(flags.dbPath, s.database)
	if err != nil {
		return nil, sysError(fmt.Errorf("resolve database path: %w", err))
	}
	log, err := newLogger(s.bridge.LogLevel, flags.verbose)
	if err != nil {
		return nil, userError(err)
	}
	installLogger(log)
	return &env{configDir: configDir, dbPath: dbPath, settings: s, log: log}, nil
}

// session is a bridge with one open database. Its methods block the calling
// goroutine until the bridge delivers the outcome.
type session struct {
	b  *bridge.Bridge
	db *bridge.Database
}

type outcome[T any] struct {
	val T
	err error
}

func openSession(ctx context.Context, e *env) (*session, error) {
	b, err := bridge.New(e.settings.bridge)
	if err != nil {
		return nil, userError(err)
	}

	ch := make(chan outcome[types.Code], 1)
	db, err := b.Open(ctx, e.dbPath, func(_ *bridge.Database, code types.Code, err error) {
		ch <- outcome[types.Code]{code, err}
	})
	if err != nil {
		_ = b.Close(ctx)
		return nil, sysError(err)
	}

	s := &session{b: b, db: db}
	res := <-ch
	if res.err == nil {
		res.err = db.Error(res.val)
	}
	if res.err != nil {
		_ = s.close(ctx)
		return nil, sysError(fmt.Errorf("open %s: %w", e.dbPath, res.err))
	}
	e.log.Debug("session opened", zap.String("path", e.dbPath))
	return s, nil
}

// result is the outcome of one statement.
type result struct {
	sql     string
	set     *types.ResultSet
	changes int
}

// run executes one statement and materializes its rows. Statements that
// produce no columns report the number of rows they changed.
func (s *session) run(ctx context.Context, sql string) (*result, error) {
	before, err := s.db.TotalChanges()
	if err != nil {
		return nil, sysError(err)
	}

	ch := make(chan outcome[*types.ResultSet], 1)
	err = s.db.QueryAll(ctx, sql, nil, func(rs *types.ResultSet, err error) {
		ch <- outcome[*types.ResultSet]{rs, err}
	})
	if err != nil {
		return nil, sysError(err)
	}
	res := <-ch
	if res.err != nil {
		return nil, userError(res.err)
	}

	r := &result{sql: sql, set: res.val}
	if len(r.set.Columns) == 0 {
		after, err := s.db.TotalChanges()
		if err != nil {
			return nil, sysError(err)
		}
		r.changes = int(after - before)
	}
	return r, nil
}

// close closes the database and stops the bridge.
func (s *session) close(ctx context.Context) error {
	ch := make(chan outcome[types.Code], 1)
	if err := s.db.Close(ctx, func(code types.Code, err error) {
		ch <- outcome[types.Code]{code, err}
	}); err != nil {
		_ = s.b.Close(ctx)
		return sysError(err)
	}
	res := <-ch
	if err := s.b.Close(ctx); err != nil {
		return sysError(err)
	}
	if res.err != nil {
		return sysError(res.err)
	}
	if res.val != types.CodeOK {
		return sysError(&types.EngineError{Code: res.val})
	}
	return nil
}

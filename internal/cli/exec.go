package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec SQL [SQL...]",
		Short: "Run SQL statements and print their results",
		Long: "Run each argument as one SQL statement, in order, against the database.\n" +
			"Execution stops at the first failing statement.",
		Example: `  sqlbridge exec "CREATE TABLE t(a INTEGER, b TEXT)"
  sqlbridge exec "INSERT INTO t VALUES (42, 'hello')" "SELECT a, b FROM t"
  sqlbridge --json exec "SELECT * FROM t"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runExec,
	}
}

func runExec(cmd *cobra.Command, args []string) (err error) {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer func() { _ = e.log.Sync() }()

	ctx := cmd.Context()
	s, err := openSession(ctx, e)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(ctx); err == nil {
			err = cerr
		}
	}()

	out := cmd.OutOrStdout()
	var results []*result
	for i, q := range args {
		r, err := s.run(ctx, q)
		if err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
		if flags.jsonMode {
			results = append(results, r)
			continue
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		renderText(out, r)
	}

	if flags.jsonMode {
		if err := renderJSON(out, results); err != nil {
			return sysError(err)
		}
	}
	return nil
}

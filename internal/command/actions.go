package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aj-geddes/revitpy-sub005/application/bridge"
	"github.com/aj-geddes/revitpy-sub005/application/schema"
	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

type scriptRun struct {
	result *entities.ExecutionResult
	err    error
	file   string
}

func (r scriptRun) failed() bool {
	return r.err != nil || r.result.Failed()
}

func execAction(c *cli.Context) error {
	files := c.Args().Slice()
	if len(files) == 0 {
		return cli.Exit("exec needs at least one script file", 2)
	}
	sources := make([]string, len(files))
	for i, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return cli.Exit(fmt.Sprintf("failed to read script: %v", err), 2)
		}
		sources[i] = string(data)
	}

	return withBridge(c, func(ctx context.Context, b *bridge.Bridge) error {
		inTx := c.Bool(flagTransaction)
		limit := c.Int(flagParallel)
		if inTx {
			// Only one transaction may be active at a time.
			limit = 1
		}

		runs := make([]scriptRun, len(files))
		g, gctx := errgroup.WithContext(ctx)
		if limit > 0 {
			g.SetLimit(limit)
		}
		for i := range files {
			g.Go(func() error {
				run := scriptRun{file: files[i]}
				if inTx {
					run.result, run.err = b.ExecuteInTransaction(gctx, filepath.Base(files[i]), sources[i], nil)
				} else {
					run.result, run.err = b.ExecuteCode(gctx, sources[i], nil)
				}
				runs[i] = run
				return nil
			})
		}
		_ = g.Wait()

		failed := 0
		for _, run := range runs {
			if run.failed() {
				failed++
			}
			if run.result != nil && run.result.Output != "" {
				fmt.Fprintf(c.App.Writer, "==> %s <==\n%s", run.file, run.result.Output)
				if !strings.HasSuffix(run.result.Output, "\n") {
					fmt.Fprintln(c.App.Writer)
				}
			}
		}
		fmt.Fprintln(c.App.Writer, resultsTable(runs))
		if c.Bool(flagStats) {
			fmt.Fprintln(c.App.Writer, statsTable(b.Stats()))
		}

		if failed > 0 {
			return cli.Exit(fmt.Sprintf("%d of %d scripts failed", failed, len(runs)), 1)
		}
		return nil
	})
}

func evalAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit("eval needs exactly one expression", 2)
	}
	expr := c.Args().First()
	return withBridge(c, func(ctx context.Context, b *bridge.Bridge) error {
		v, err := b.EvaluateExpression(ctx, expr)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		fmt.Fprintln(c.App.Writer, v.String())
		return nil
	})
}

func healthAction(c *cli.Context) error {
	return withBridge(c, func(ctx context.Context, b *bridge.Bridge) error {
		report, err := b.HealthCheck(ctx)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		fmt.Fprintln(c.App.Writer, healthTable(report))
		if !report.Healthy {
			return cli.Exit("pool is unhealthy", 1)
		}
		return nil
	})
}

func schemaAction(c *cli.Context) error {
	data, err := schema.ConfigSchema()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Microsecond).String()
}

// Package main contains the cli implementation of the row-copy tool. It
// uses cobra, with a per-subcommand flags-struct + RunE delegation idiom.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	_ "rowsync/internal/source/mongosrc"
	_ "rowsync/internal/source/mysqlsrc"
	_ "rowsync/internal/source/pgsrc"

	"rowsync/internal/pipeline"
	"rowsync/internal/schema"
	"rowsync/internal/sink"
	"rowsync/internal/sink/httpsink"
	"rowsync/internal/sink/sqlsink"
	"rowsync/internal/source"
)

type copyFlags struct {
	sourceBackend string
	sourceDSN     string
	sourceDB      string
	sourceTable   string

	sinkKind     string
	sinkDSN      string
	sinkEndpoint string
	sinkSchema   string
	sinkTable    string

	schemaFile string
	reconcile  bool
	batchSize  int
	keepCols   []string
}

type copyAllFlags struct {
	copyFlags
	tables []string
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "rowsync",
		Short: "Streaming row copier between heterogeneous source databases and an analytical sink",
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(migrateAllCmd())
	rootCmd.AddCommand(listTablesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func bindCopyFlags(cmd *cobra.Command, f *copyFlags) {
	cmd.Flags().StringVar(&f.sourceBackend, "source", "", "Source backend: mongo, postgres, or mysql (required)")
	cmd.Flags().StringVar(&f.sourceDSN, "source-dsn", "", "Source connection string (required)")
	cmd.Flags().StringVar(&f.sourceDB, "source-db", "", "Source database/schema name (required)")

	cmd.Flags().StringVar(&f.sinkKind, "sink", "sql", "Sink dispatch path: sql or http")
	cmd.Flags().StringVar(&f.sinkDSN, "sink-dsn", "", "Sink SQL pool URL (required when --sink=sql)")
	cmd.Flags().StringVar(&f.sinkEndpoint, "sink-endpoint", "", "Sink HTTP endpoint base URL (required when --sink=http)")
	cmd.Flags().StringVar(&f.sinkSchema, "sink-schema", "", "Sink schema name (required)")

	cmd.Flags().StringVar(&f.schemaFile, "schema-file", "", "Path to a JSON schema blob for reconciliation")
	cmd.Flags().BoolVar(&f.reconcile, "reconcile", false, "Reconcile each batch against --schema-file before dispatch")
	cmd.Flags().IntVar(&f.batchSize, "batch-size", 0, "Flush threshold; 0 uses the pipeline default (5000)")
	cmd.Flags().StringSliceVar(&f.keepCols, "keep-columns", nil, "Columns to keep; all others are ignored (default: keep everything probed)")
}

func migrateCmd() *cobra.Command {
	flags := &copyFlags{}
	cmd := &cobra.Command{
		Use:   "migrate <table>",
		Short: "Migrate one source table/collection into the sink",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.sourceTable = args[0]
			flags.sinkTable = args[0]
			report, err := runCopy(cmd.Context(), *flags)
			if err != nil {
				return err
			}
			printReport(flags.sourceTable, report)
			return nil
		},
	}
	bindCopyFlags(cmd, flags)
	return cmd
}

func listTablesCmd() *cobra.Command {
	flags := &copyFlags{}
	cmd := &cobra.Command{
		Use:   "list-tables",
		Short: "List tables/collections visible on the source",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runListTables(cmd.Context(), *flags)
		},
	}
	cmd.Flags().StringVar(&flags.sourceBackend, "source", "", "Source backend: mongo, postgres, or mysql (required)")
	cmd.Flags().StringVar(&flags.sourceDSN, "source-dsn", "", "Source connection string (required)")
	cmd.Flags().StringVar(&flags.sourceDB, "source-db", "", "Source database/schema name (required)")
	return cmd
}

func runListTables(ctx context.Context, flags copyFlags) error {
	if flags.sourceBackend == "" || flags.sourceDSN == "" || flags.sourceDB == "" {
		return fmt.Errorf("--source, --source-dsn, and --source-db are required")
	}
	adapter, err := source.New(source.Backend(strings.ToLower(flags.sourceBackend)))
	if err != nil {
		return err
	}
	if err := adapter.Connect(ctx, flags.sourceDSN); err != nil {
		return fmt.Errorf("rowsync: connect source: %w", err)
	}
	defer adapter.Close(ctx)

	tables, err := adapter.ListTables(ctx, flags.sourceDB)
	if err != nil {
		return fmt.Errorf("rowsync: list tables: %w", err)
	}
	for _, t := range tables {
		fmt.Println(t)
	}
	return nil
}

func migrateAllCmd() *cobra.Command {
	flags := &copyAllFlags{}
	cmd := &cobra.Command{
		Use:   "migrate-all",
		Short: "Migrate several tables in parallel, one pipeline per table",
		Long: `Runs one pipeline per table concurrently; every pipeline writes through
its own sink handle so pool bounds stay per-connection rather than shared
across goroutines, and the group stops all remaining pipelines on the
first fatal error.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(flags.tables) == 0 {
				return fmt.Errorf("--tables is required and must name at least one table")
			}
			return runCopyAll(cmd.Context(), *flags)
		},
	}
	bindCopyFlags(cmd, &flags.copyFlags)
	cmd.Flags().StringSliceVar(&flags.tables, "tables", nil, "Tables/collections to copy, same source and sink kind for all")
	return cmd
}

func runCopyAll(ctx context.Context, flags copyAllFlags) error {
	g, gctx := errgroup.WithContext(ctx)
	reports := make([]pipeline.Report, len(flags.tables))
	tables := flags.tables

	for i, table := range tables {
		i, table := i, table
		g.Go(func() error {
			per := flags.copyFlags
			per.sourceTable = table
			per.sinkTable = table
			report, err := runCopy(gctx, per)
			if err != nil {
				return fmt.Errorf("table %s: %w", table, err)
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	for i, table := range tables {
		printReport(table, reports[i])
	}
	return nil
}

func runCopy(ctx context.Context, flags copyFlags) (pipeline.Report, error) {
	if flags.sourceBackend == "" || flags.sourceDSN == "" || flags.sourceDB == "" {
		return pipeline.Report{}, fmt.Errorf("--source, --source-dsn, and --source-db are required")
	}
	if flags.sinkSchema == "" {
		return pipeline.Report{}, fmt.Errorf("--sink-schema is required")
	}

	adapter, err := source.New(source.Backend(strings.ToLower(flags.sourceBackend)))
	if err != nil {
		return pipeline.Report{}, err
	}
	if err := adapter.Connect(ctx, flags.sourceDSN); err != nil {
		return pipeline.Report{}, fmt.Errorf("rowsync: connect source: %w", err)
	}
	defer adapter.Close(ctx)

	probed, err := adapter.ProbeColumns(ctx, flags.sourceDB, flags.sourceTable)
	if err != nil {
		return pipeline.Report{}, fmt.Errorf("rowsync: probe columns: %w", err)
	}
	keep := toSet(flags.keepCols)
	if len(keep) == 0 {
		keep = toSet(probed)
	}
	ignored := source.IgnoredSet(probed, keep)

	cur, err := adapter.Cursor(ctx, flags.sourceDB, flags.sourceTable, ignored)
	if err != nil {
		return pipeline.Report{}, fmt.Errorf("rowsync: open cursor: %w", err)
	}
	defer cur.Close(ctx)

	sk, err := openSink(ctx, flags)
	if err != nil {
		return pipeline.Report{}, err
	}
	defer sk.Close(ctx)

	sc, err := loadSchema(flags.schemaFile)
	if err != nil {
		return pipeline.Report{}, err
	}

	p := pipeline.Open(cur, sk, pipeline.Config{
		SourceDB:    flags.sourceDB,
		SourceTable: flags.sourceTable,
		SinkSchema:  flags.sinkSchema,
		SinkTable:   flags.sinkTable,
		Ignored:     ignored,
		Schema:      sc,
		BatchSize:   flags.batchSize,
		Reconcile:   flags.reconcile,
	})
	return p.Run(ctx)
}

func openSink(ctx context.Context, flags copyFlags) (sink.Sink, error) {
	switch strings.ToLower(flags.sinkKind) {
	case "sql":
		if flags.sinkDSN == "" {
			return nil, fmt.Errorf("--sink-dsn is required when --sink=sql")
		}
		return sqlsink.Open(ctx, flags.sinkDSN)
	case "http":
		if flags.sinkEndpoint == "" {
			return nil, fmt.Errorf("--sink-endpoint is required when --sink=http")
		}
		return httpsink.Open(flags.sinkEndpoint), nil
	default:
		return nil, fmt.Errorf("rowsync: unsupported sink kind %q", flags.sinkKind)
	}
}

func loadSchema(path string) (*schema.Schema, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rowsync: read schema file: %w", err)
	}
	sc, err := schema.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rowsync: parse schema: %w", err)
	}
	return sc, nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func printReport(table string, r pipeline.Report) {
	fmt.Printf("%s: read %d rows, sent %d batches, wrote %d rows (%d flagged)\n",
		table, r.RowsRead, r.BatchesSent, r.RowsWritten, r.Flagged)
}

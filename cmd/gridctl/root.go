package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"tablegrid/application/ports"
	"tablegrid/domain/core/entities"
	domain "tablegrid/domain/services"
	"tablegrid/infrastructure/config"
	"tablegrid/infrastructure/di"
	"tablegrid/pkg/observability"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Exit codes
const (
	exitFailure      = 1 // some rows failed to apply
	exitCommandError = 2 // bad flags, unreadable files, store errors
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func commandError(format string, args ...interface{}) error {
	return &exitError{code: exitCommandError, err: fmt.Errorf(format, args...)}
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitCommandError
}

type rootOptions struct {
	Format    string
	Store     string
	Table     string
	LocalPath string
	Verbose   bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "gridctl",
		Short: "Scan, diff and apply table snapshots",
		Long: `gridctl works on the same snapshots as the web grid: a JSON array of rows,
or an object with a "rows" array, each row keyed by a string "id".

Store settings default to the service environment (STORE_DRIVER, TABLE_NAME,
LOCAL_DB_PATH, AWS_REGION, DYNAMODB_ENDPOINT, CONFIG_FILE).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != "text" && opts.Format != "json" {
				return commandError("invalid format %q: must be text or json", opts.Format)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")
	cmd.PersistentFlags().StringVar(&opts.Store, "store", "", "store driver (dynamodb|local), overrides STORE_DRIVER")
	cmd.PersistentFlags().StringVar(&opts.Table, "table", "", "table name, overrides TABLE_NAME")
	cmd.PersistentFlags().StringVar(&opts.LocalPath, "local-path", "", "badger directory for the local store")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log store calls")

	cmd.AddCommand(newScanCommand(opts))
	cmd.AddCommand(newDiffCommand(opts))
	cmd.AddCommand(newApplyCommand(opts))
	return cmd
}

func (o *rootOptions) logger() *zap.Logger {
	if !o.Verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func (o *rootOptions) config() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, commandError("load configuration: %w", err)
	}
	if o.Store != "" {
		cfg.StoreDriver = o.Store
	}
	if o.Table != "" {
		cfg.TableName = o.Table
	}
	if o.LocalPath != "" {
		cfg.LocalDBPath = o.LocalPath
	}
	if cfg.StoreDriver == config.DriverLocal && cfg.TableName == "" {
		cfg.TableName = "local"
	}
	if cfg.StoreDriver != config.DriverLocal && cfg.StoreDriver != config.DriverDynamoDB {
		return nil, commandError("unknown store driver %q", cfg.StoreDriver)
	}
	if cfg.TableName == "" {
		return nil, commandError("a table name is required (--table or TABLE_NAME)")
	}
	return cfg, nil
}

// openStore builds the same decorated store the server uses
func (o *rootOptions) openStore(ctx context.Context) (ports.TableStore, *config.Config, func(), error) {
	cfg, err := o.config()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := o.logger()

	tp, err := observability.InitTracing(ctx, observability.TracingConfig{ServiceName: "gridctl", Environment: cfg.Environment})
	if err != nil {
		return nil, nil, nil, commandError("init tracing: %w", err)
	}
	awsCfg, err := di.ProvideAWSConfig(ctx, cfg)
	if err != nil {
		return nil, nil, nil, commandError("%w", err)
	}
	store, closeStore, err := di.ProvideTableStore(cfg, di.ProvideDynamoDBClient(awsCfg, cfg), tp, logger)
	if err != nil {
		return nil, nil, nil, commandError("open store: %w", err)
	}
	return store, cfg, func() {
		closeStore()
		_ = tp.Shutdown(context.Background())
		_ = logger.Sync()
	}, nil
}

// readSnapshot loads a snapshot file; "-" reads stdin
func readSnapshot(path string) (entities.Snapshot, error) {
	f := os.Stdin
	if path != "-" {
		var err error
		f, err = os.Open(path)
		if err != nil {
			return nil, commandError("open snapshot: %w", err)
		}
		defer f.Close()
	}

	var raw json.RawMessage
	dec := json.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return nil, commandError("read %s: %w", path, err)
	}

	var rows entities.Snapshot
	if err := decodeNumbers(raw, &rows); err == nil {
		return rows, nil
	}
	var wrapped struct {
		Rows entities.Snapshot `json:"rows"`
	}
	if err := decodeNumbers(raw, &wrapped); err != nil {
		return nil, commandError("%s is not a snapshot: %w", path, err)
	}
	return wrapped.Rows, nil
}

func decodeNumbers(raw json.RawMessage, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func reconcilerFor(policy string) (*domain.Reconciler, error) {
	p, err := domain.ParseBlankRowPolicy(policy)
	if err != nil {
		return nil, commandError("%w", err)
	}
	return domain.NewReconciler(p), nil
}

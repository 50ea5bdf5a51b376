package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/importio/internal/config"
	"github.com/JonMunkholm/importio/internal/core"
	"github.com/JonMunkholm/importio/internal/storage"
)

type importOptions struct {
	fields      string
	fieldFile   string
	mode        string
	key         string
	ruleFile    string
	delimiter   string
	ignore      int
	take        int
	database    string
	transaction bool
	dryRun      bool
	noProgress  bool
	force       bool
	skipInvalid bool
	encoding    string
}

func newImportCmd(cfg *config.Config) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import:delimited FROM TO",
		Short: "Import data from a delimited file using a table or entity model",
		Long: `Import data from a delimited file into a table or an entity model.

TO is a table name (optionally schema-qualified) or, with a leading backslash,
the name of an entity model declared in the catalog file, e.g. \Customer.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, cfg, opts, args[0], args[1])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.fields, "fields", "f", "", `Comma separated field definitions <field>[:position], e.g. "email:0,name,2". Positions are 0 based`)
	f.StringVarP(&opts.fieldFile, "field-file", "F", "", "File with field definitions, one per line")
	f.StringVarP(&opts.mode, "mode", "m", cfg.Import.Mode, "Import mode [insert|insert-new|update|upsert]")
	f.StringVarP(&opts.key, "key", "k", "", "Comma separated key fields for update, upsert and insert-new modes")
	f.StringVarP(&opts.ruleFile, "rule-file", "R", "", "File with field validation rules (YAML or JSON)")
	f.StringVarP(&opts.delimiter, "delimiter", "d", cfg.Import.Delimiter, `Field delimiter; escapes such as \t are interpreted`)
	f.IntVarP(&opts.ignore, "ignore", "i", 0, "Ignore the first N lines of the file")
	f.IntVarP(&opts.take, "take", "t", 0, "Take only M lines, 0 for all")
	f.StringVarP(&opts.database, "database", "c", "", "The database connection to use")
	f.BoolVarP(&opts.transaction, "transaction", "x", false, "Use a transaction")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Dry run mode")
	f.BoolVar(&opts.noProgress, "no-progress", false, "Don't show the progress bar")
	f.BoolVar(&opts.force, "force", false, "Force the operation to run when in production")
	f.BoolVar(&opts.skipInvalid, "skip-invalid", false, "Skip rows that fail validation instead of aborting")
	f.StringVar(&opts.encoding, "encoding", cfg.Import.Encoding, "Charset of the import file, e.g. utf-8, windows-1252")

	return cmd
}

func runImport(cmd *cobra.Command, cfg *config.Config, opts importOptions, from, to string) error {
	ctx := cmd.Context()
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	if cfg.App.IsProduction() && !opts.force {
		if !confirm(cmd.InOrStdin(), stderr) {
			return withCode(exitAborted, errors.New("Command cancelled."))
		}
	}

	catalog, err := config.LoadCatalog(cfg)
	if err != nil {
		return withCode(exitUsage, err)
	}

	connName, conn, err := catalog.Connection(opts.database)
	if err != nil {
		return withCode(exitUsage, err)
	}

	backend, err := storage.Open(ctx, conn.Driver, storage.Options{
		DSN:             conn.DSN,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		slog.Error("database connection failed", "connection", connName, "driver", conn.Driver, "error", err)
		return withCode(exitAborted, userError(err))
	}
	defer backend.Close()

	target, err := resolveTarget(backend, catalog, to)
	if err != nil {
		return withCode(exitUsage, userError(err))
	}

	importCfg, err := buildConfiguration(opts, from)
	if err != nil {
		return withCode(exitUsage, userError(err))
	}

	var observer core.Observer = core.NopObserver{}
	var bar *progressBar
	if !opts.noProgress {
		bar = newProgressBar(stderr)
		observer = bar
	}

	importer := core.NewImporter(importCfg, target, core.WithObserver(observer))
	stats, err := importer.Run(ctx)
	if err != nil {
		if bar != nil {
			bar.clear()
		}
		code := exitAborted
		if core.IsConfigurationError(err) {
			code = exitUsage
		}
		return withCode(code, errors.New(strings.TrimSuffix(core.FailureReport(stats, err), "\n")))
	}

	fmt.Fprintln(stdout, core.Summary(stats))
	return nil
}

// userError renders err with its code and suggested action.
func userError(err error) error {
	return errors.New(core.FormatUserError(err))
}

// resolveTarget picks a table or entity target for name.
func resolveTarget(backend storage.Backend, catalog *config.Catalog, name string) (core.Target, error) {
	entity, bare := storage.ParseTargetName(name)
	if !entity {
		return backend.Table(bare), nil
	}

	models := storage.NewModelRegistry()
	for modelName, m := range catalog.Models {
		models.Register(storage.Model{
			Name:       modelName,
			Table:      m.Table,
			PrimaryKey: m.PrimaryKey,
			Fillable:   m.Fillable,
			Timestamps: m.Timestamps,
		})
	}

	model, ok := models.Get(bare)
	if !ok {
		return nil, fmt.Errorf("%w: model '%s' isn't declared", core.ErrTargetNotFound, bare)
	}
	// Report the name as typed.
	model.Name = bare

	target, err := backend.Entity(model)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrTargetNotFound, err)
	}
	return target, nil
}

// buildConfiguration applies the command line options to a Builder.
func buildConfiguration(opts importOptions, from string) (core.Configuration, error) {
	b := core.NewBuilder()

	steps := []func() error{
		func() error { return b.SetFile(from) },
		func() error { return b.SetMode(opts.mode) },
		func() error {
			if opts.fieldFile != "" {
				return b.SetFieldsFromFile(opts.fieldFile)
			}
			if strings.TrimSpace(opts.fields) == "" {
				return fmt.Errorf("%w. Use -f or -F option", core.ErrEmptyFieldSpec)
			}
			return b.SetFields(core.SplitDefinitions(opts.fields))
		},
		func() error {
			if opts.key == "" {
				return nil
			}
			defs := core.SplitDefinitions(opts.key)
			if len(defs) == 0 {
				return fmt.Errorf("%w '%s'", core.ErrInvalidKeyField, opts.key)
			}
			return b.SetKey(defs)
		},
		func() error {
			if opts.ruleFile == "" {
				return nil
			}
			return b.SetRulesFromFile(opts.ruleFile)
		},
		func() error { return b.SetDelimiter(opts.delimiter) },
		func() error { return b.SetIgnoreLines(opts.ignore) },
		func() error {
			// Zero means no limit.
			if opts.take == 0 {
				return nil
			}
			return b.SetTakeLines(opts.take)
		},
		func() error { return b.SetEncoding(opts.encoding) },
		func() error { return b.SetTransaction(opts.transaction) },
		func() error { return b.SetDryRun(opts.dryRun) },
		func() error { return b.SetSkipInvalid(opts.skipInvalid) },
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return core.Configuration{}, err
		}
	}
	return b.Build()
}

// confirm asks before running against production.
func confirm(in io.Reader, out io.Writer) bool {
	fmt.Fprintln(out, "**************************************")
	fmt.Fprintln(out, "*     Application In Production!     *")
	fmt.Fprintln(out, "**************************************")
	fmt.Fprint(out, "Do you really wish to run this command? [y/N] ")

	answer, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

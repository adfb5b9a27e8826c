package cli

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/graphpush/internal/cypher"
	"github.com/roach88/graphpush/internal/ir"
	"github.com/roach88/graphpush/internal/pushdown"
	"github.com/roach88/graphpush/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	DB   string // cache database path; empty disables caching
	Jobs int    // files compiled concurrently
}

// CompiledFile is the compile outcome of one query file.
type CompiledFile struct {
	File    string     `json:"file"`
	Query   string     `json:"query,omitempty"`
	Params  *ir.Params `json:"params,omitempty"`
	Columns []string   `json:"columns,omitempty"`
	Cached  bool       `json:"cached,omitempty"`
	Refused string     `json:"refused,omitempty"` // refusal code
	Reason  string     `json:"reason,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query-file|dir>...",
		Short: "Compile pattern queries to parameterized Cypher",
		Long: `Compile YAML pattern queries to parameterized Cypher.

Each argument is a query file or a directory of them. Queries the
compiler refuses are reported with their refusal code.

Exit codes:
  0 - Every query compiled
  1 - One or more queries were refused
  2 - Command error (missing files, bad schema, cache errors)

Examples:
  graphpush compile query.yaml
  graphpush compile ./queries --db cache.db --format json
  graphpush compile ./queries --schema schema.cue`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "cache database path")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", runtime.GOMAXPROCS(0), "files compiled concurrently")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, args []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	files, err := expandQueryFiles(args)
	if err != nil {
		return failLoad(formatter, err)
	}

	compiler, err := newCompiler(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return failLoad(formatter, err)
	}

	engineOpts := []pushdown.Option{pushdown.WithLogger(opts.logger(cmd.ErrOrStderr()))}
	if opts.DB != "" {
		st, err := store.Open(opts.DB)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeCacheFailed, err.Error())
		}
		defer st.Close()
		engineOpts = append(engineOpts, pushdown.WithCache(st))
	}
	// Only Compile is used: no executor, no fallback.
	engine := pushdown.New(compiler, nil, nil, engineOpts...)

	results, err := compileFiles(ctx, engine, files, opts.Jobs)
	if err != nil {
		return failLoad(formatter, err)
	}

	refused := 0
	for _, r := range results {
		if r.Refused != "" {
			refused++
		}
		formatter.VerboseLog("%s: cached=%t refused=%q", r.File, r.Cached, r.Refused)
	}

	if opts.Format == "json" {
		if err := formatter.Success(results); err != nil {
			return err
		}
	} else {
		writeCompiledText(formatter, results)
	}

	if refused > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d queries refused", refused, len(results)))
	}
	return nil
}

// compileFiles compiles files concurrently, returning results in file order.
// Load errors abort the run; refusals are results.
func compileFiles(ctx context.Context, engine *pushdown.Engine, files []string, jobs int) ([]CompiledFile, error) {
	if jobs < 1 {
		jobs = 1
	}
	results := make([]CompiledFile, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			req, err := loadRequest(file)
			if err != nil {
				return err
			}
			results[i] = compileOne(ctx, engine, file, req)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func compileOne(ctx context.Context, engine *pushdown.Engine, file string, req pushdown.Request) CompiledFile {
	out := CompiledFile{File: file}
	res, cached, err := engine.Compile(ctx, req)
	if err != nil {
		out.Refused = refusalCode(err)
		out.Reason = err.Error()
		return out
	}
	out.Query = res.Query
	out.Params = res.Parameters
	out.Columns = res.Columns
	out.Cached = cached
	return out
}

// refusalCode names a compile refusal the way the cache records it.
func refusalCode(err error) string {
	if code, ok := cypher.CodeOf(err); ok {
		return string(code)
	}
	if errors.Is(err, cypher.ErrCannotTranslateAggregation) {
		return "AGGREGATION"
	}
	return "ERROR"
}

func writeCompiledText(f *OutputFormatter, results []CompiledFile) {
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(f.Writer)
		}
		header := "== " + r.File
		if r.Cached {
			header += " (cached)"
		}
		fmt.Fprintln(f.Writer, header)

		if r.Refused != "" {
			fmt.Fprintf(f.Writer, "refused: %s\n", r.Reason)
			continue
		}
		params, err := r.Params.MarshalJSON()
		if err != nil {
			params = []byte(err.Error())
		}
		fmt.Fprintln(f.Writer, r.Query)
		fmt.Fprintf(f.Writer, "params: %s\n", params)
		fmt.Fprintf(f.Writer, "columns: %s\n", strings.Join(r.Columns, ", "))
	}
}

// failLoad reports a load error with its code and exits with ExitCommandError.
func failLoad(f *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		msg := loadErr.Message
		if loadErr.Path != "" {
			msg = loadErr.Path + ": " + msg
		}
		return f.Fail(ExitCommandError, loadErr.Code, msg)
	}
	return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
}

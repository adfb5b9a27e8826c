package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/graphpush/internal/ir"
	"github.com/roach88/graphpush/internal/store"
)

// CacheOptions holds flags shared by the cache subcommands.
type CacheOptions struct {
	*RootOptions
	DB  string
	Key string
}

// CacheStats summarizes a cache database.
type CacheStats struct {
	Compiled        int    `json:"compiled"`
	Fallbacks       int    `json:"fallbacks"`
	CompilerVersion string `json:"compiler_version"`
}

// NewCacheCommand creates the cache command and its subcommands.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the compile cache",
	}
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "cache database path (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	stats := &cobra.Command{
		Use:           "stats",
		Short:         "Count cached queries and recorded refusals",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(opts, cmd, runCacheStats)
		},
	}

	purge := &cobra.Command{
		Use:           "purge",
		Short:         "Delete cached queries compiled by other compiler versions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(opts, cmd, runCachePurge)
		},
	}

	fallbacks := &cobra.Command{
		Use:           "fallbacks",
		Short:         "List recorded refusals, oldest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(opts, cmd, runCacheFallbacks)
		},
	}
	fallbacks.Flags().StringVar(&opts.Key, "key", "", "only refusals for this pattern key")

	cmd.AddCommand(stats, purge, fallbacks)
	return cmd
}

type cacheFunc func(ctx context.Context, opts *CacheOptions, st *store.Store, f *OutputFormatter) error

func withCache(opts *CacheOptions, cmd *cobra.Command, fn cacheFunc) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := store.Open(opts.DB)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCacheFailed, err.Error())
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := fn(ctx, opts, st, formatter); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCacheFailed, err.Error())
	}
	return nil
}

func runCacheStats(ctx context.Context, _ *CacheOptions, st *store.Store, f *OutputFormatter) error {
	compiled, err := st.CountResults(ctx)
	if err != nil {
		return err
	}
	fbs, err := st.Fallbacks(ctx, "")
	if err != nil {
		return err
	}
	stats := CacheStats{Compiled: compiled, Fallbacks: len(fbs), CompilerVersion: ir.CompilerVersion}

	if f.Format == "json" {
		return f.Success(stats)
	}
	fmt.Fprintf(f.Writer, "compiled queries: %d\n", stats.Compiled)
	fmt.Fprintf(f.Writer, "recorded refusals: %d\n", stats.Fallbacks)
	fmt.Fprintf(f.Writer, "compiler version: %s\n", stats.CompilerVersion)
	return nil
}

func runCachePurge(ctx context.Context, _ *CacheOptions, st *store.Store, f *OutputFormatter) error {
	n, err := st.PurgeStale(ctx, ir.CompilerVersion)
	if err != nil {
		return err
	}
	if f.Format == "json" {
		return f.Success(map[string]int64{"purged": n})
	}
	fmt.Fprintf(f.Writer, "purged %d stale queries\n", n)
	return nil
}

func runCacheFallbacks(ctx context.Context, opts *CacheOptions, st *store.Store, f *OutputFormatter) error {
	fbs, err := st.Fallbacks(ctx, opts.Key)
	if err != nil {
		return err
	}
	if f.Format == "json" {
		return f.Success(fbs)
	}
	if len(fbs) == 0 {
		fmt.Fprintln(f.Writer, "No refusals recorded.")
		return nil
	}
	for _, fb := range fbs {
		fmt.Fprintf(f.Writer, "%d  %s  %s  %s\n", fb.Seq, fb.PatternKey, fb.Code, fb.Reason)
	}
	return nil
}

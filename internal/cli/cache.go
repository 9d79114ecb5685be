package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/shapefmt/internal/store"
)

// CacheOptions holds flags shared by the cache subcommands.
type CacheOptions struct {
	*RootOptions
	Cache  string
	Config string
}

// ForgetResult reports the outcome of cache forget.
type ForgetResult struct {
	Forgotten []string `json:"forgotten"`
}

// NewCacheCommand creates the cache command and its subcommands.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the fmt --cache database",
		Long: `Inspect or prune the database written by fmt --cache.

The database is taken from --cache, or from the cache key of the config
file when the flag is not given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Cache, "cache", "", "path to format cache database")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file (default: ./"+DefaultConfigFile+")")

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List cached files in the order they were recorded",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheList(opts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "forget <path>...",
		Short:         "Drop files from the cache so the next fmt --cache formats them",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheForget(opts, cmd, args)
		},
	})

	return cmd
}

// openCache opens an existing cache database. It never creates one.
func openCache(opts *CacheOptions, out *OutputFormatter) (*store.Store, error) {
	path := opts.Cache
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, out.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		cfg, err := findConfig(opts.Config, wd)
		if err != nil {
			return nil, out.fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
		}
		path = cfg.Cache
	}
	if path == "" {
		return nil, out.fail(ExitCommandError, ErrCodeInvalidArgs,
			"no cache database: pass --cache or set cache in "+DefaultConfigFile, nil)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, out.fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("cache not found: %s", path), nil)
	}

	st, err := store.Open(path)
	if err != nil {
		return nil, out.fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("cannot open cache: %v", err), nil)
	}
	return st, nil
}

func runCacheList(opts *CacheOptions, cmd *cobra.Command) error {
	out := newOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	st, err := openCache(opts, out)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.Entries(cmdContext(cmd))
	if err != nil {
		return out.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	if out.Format == "json" {
		return out.Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out.Writer, "Cache is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(out.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tPATH\tCONTENT\tENGINE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.Seq, e.Path, shortHash(e.ContentHash), e.EngineVersion)
	}
	return tw.Flush()
}

func runCacheForget(opts *CacheOptions, cmd *cobra.Command, paths []string) error {
	out := newOutputFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	st, err := openCache(opts, out)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmdContext(cmd)
	result := ForgetResult{Forgotten: []string{}}
	for _, p := range paths {
		abs := absPath(p)
		if err := st.Forget(ctx, abs); err != nil {
			return out.fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		result.Forgotten = append(result.Forgotten, abs)
	}

	if out.Format == "json" {
		return out.Success(result)
	}
	fmt.Fprintf(out.Writer, "Forgot %d path(s)\n", len(result.Forgotten))
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/shapefmt/internal/grammar"
	"github.com/roach88/shapefmt/internal/language"
)

// LanguageInfo describes one supported language.
type LanguageInfo struct {
	ID         string   `json:"id"`
	Extensions []string `json:"extensions"`
	Document   string   `json:"document"`
	Origin     string   `json:"origin,omitempty"`
	Grammar    bool     `json:"grammar"`
	Error      string   `json:"error,omitempty"`
}

// NewLanguagesCommand creates the languages command.
func NewLanguagesCommand(rootOpts *RootOptions) *cobra.Command {
	var languageDir string

	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List supported languages and their pattern documents",
		Long: `List every supported language with its file extensions and the
pattern document fmt would load for it.

The origin column says which source won: dir (--language-dir), env
($SHAPEFMT_LANGUAGE_DIR), build (compiled-in path) or bundled.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLanguages(rootOpts, languageDir, cmd)
		},
	}

	cmd.Flags().StringVar(&languageDir, "language-dir", "", "directory of pattern documents (highest priority)")

	return cmd
}

func runLanguages(opts *RootOptions, languageDir string, cmd *cobra.Command) error {
	formatter := newOutputFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	infos := listLanguages(language.NewDocuments(language.WithDir(languageDir)), grammar.NewRegistry())

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LANGUAGE\tEXTENSIONS\tDOCUMENT\tORIGIN")
	for _, info := range infos {
		exts := "-"
		if len(info.Extensions) > 0 {
			exts = "." + strings.Join(info.Extensions, " .")
		}
		doc, origin := info.Document, info.Origin
		if info.Error != "" {
			doc, origin = "✗ "+info.Error, "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.ID, exts, doc, origin)
	}
	return tw.Flush()
}

func listLanguages(docs *language.Documents, reg *grammar.Registry) []LanguageInfo {
	grammars := map[string]bool{}
	for _, id := range reg.Languages() {
		grammars[id] = true
	}

	all := language.All()
	infos := make([]LanguageInfo, 0, len(all))
	for _, l := range all {
		info := LanguageInfo{
			ID:         l.ID,
			Extensions: l.Extensions,
			Grammar:    grammars[l.ID],
		}
		if info.Extensions == nil {
			info.Extensions = []string{}
		}
		loc, err := docs.Locate(l.ID)
		if err != nil {
			info.Error = err.Error()
		} else {
			info.Document = loc.Path
			info.Origin = string(loc.Origin)
		}
		infos = append(infos, info)
	}
	return infos
}

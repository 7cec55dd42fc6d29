package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adammathes/epubnorm/pkg/epub"
	"github.com/adammathes/epubnorm/pkg/report"
	"github.com/adammathes/epubnorm/pkg/verify"
)

func (a *app) normalizeCommand() *cobra.Command {
	var (
		jsonOut  bool
		compress bool
		noVerify bool
	)
	cmd := &cobra.Command{
		Use:   "normalize <epub|dir>",
		Short: "Move every file to its normalized path and rewrite references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rep *report.Report
			err := a.withDocument(args[0], true, func(doc *epub.Document) error {
				r, err := doc.Normalize()
				rep = r
				if err != nil {
					return err
				}
				if compress || a.cfg.Compress {
					if err := doc.Compress(); err != nil {
						return err
					}
				}
				if a.cfg.Verify && !noVerify {
					rep.Merge(verify.Verify(doc))
				}
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if err := rep.WriteJSON(out); err != nil {
					return err
				}
			} else {
				rep.WriteText(out)
			}
			a.log.Info("normalize finished", zap.String("path", args[0]), zap.Int("moves", len(rep.Moves)))
			return reportExit(rep)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "write the report as JSON")
	cmd.Flags().BoolVar(&compress, "compress", false, "minify stylesheets and content documents afterwards")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "skip the consistency check")
	return cmd
}

func (a *app) standardizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "standardize <epub|dir>",
		Short: "Escape references, drop scripts and namespace stylesheets without moving files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rep *report.Report
			err := a.withDocument(args[0], true, func(doc *epub.Document) error {
				rep = doc.Report()
				return doc.Standardize()
			})
			if err != nil {
				return err
			}
			rep.WriteText(cmd.OutOrStdout())
			return reportExit(rep)
		},
	}
}

// parseKinds reads a comma separated --kind value.
func parseKinds(s string) ([]epub.ItemKind, error) {
	var kinds []epub.ItemKind
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		k, err := epub.ParseKind(part)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func (a *app) compressCommand() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "compress <epub|dir>",
		Short: "Minify stylesheets and content documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(kind)
			if err != nil {
				return &ExitError{Code: ExitFatal, Err: err}
			}
			return a.withDocument(args[0], true, func(doc *epub.Document) error {
				return doc.Compress(kinds...)
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "css,html", "item kinds to minify")
	return cmd
}

func (a *app) extractCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <epub> <dir>",
		Short: "Unpack an EPUB into a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := epub.ExtractTo(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Extracted %s to %s\n", args[0], args[1])
			return nil
		},
	}
}

func (a *app) extractFileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "extract-file <epub> <path> <dir>",
		Short: "Copy one file out of an EPUB",
		Long: `Copy one file out of an EPUB into dir. The path is looked up in the
manifest first, ignoring case, and then taken as an archive path.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, dest := args[1], args[2]
			return a.withDocument(args[0], false, func(doc *epub.Document) error {
				it, err := doc.Manifest().ItemForPath(name)
				switch {
				case err == nil:
					name = it.Path()
					err = it.Extract(dest)
				case errors.Is(err, epub.ErrNotFound):
					err = doc.Storage().Extract(name, dest)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Extracted %s to %s\n", name, dest)
				return nil
			})
		},
	}
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/disiqueira/gotree/v3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/adammathes/epubnorm/pkg/epub"
	"github.com/adammathes/epubnorm/pkg/verify"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderTOC draws the navigation entries as a tree under label.
func renderTOC(label string, entries []*epub.TOCEntry) string {
	type frame struct {
		node    gotree.Tree
		entries []*epub.TOCEntry
	}
	root := gotree.New(label)
	stack := []frame{{root, entries}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range f.entries {
			child := f.node.Add(fmt.Sprintf("%s (%s)", e.Label, e.URL))
			if len(e.Children) > 0 {
				stack = append(stack, frame{child, e.Children})
			}
		}
	}
	return root.Print()
}

func (a *app) tocCommand() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "toc <epub|dir>",
		Short: "Print the navigation tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDocument(args[0], false, func(doc *epub.Document) error {
				toc, err := doc.TOC()
				if err != nil {
					return err
				}
				entries := toc.Entries()
				if jsonOut {
					if entries == nil {
						entries = []*epub.TOCEntry{}
					}
					return writeJSON(cmd.OutOrStdout(), entries)
				}
				label, err := doc.Metadata().Get("title")
				if err != nil {
					label = toc.Item().Path()
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTOC(label, entries))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "write the tree as JSON")
	return cmd
}

func (a *app) manifestCommand() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "manifest <epub|dir>",
		Short: "List the manifest items with their current and normalized paths",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDocument(args[0], false, func(doc *epub.Document) error {
				if jsonOut {
					return writeJSON(cmd.OutOrStdout(), doc.Manifest().Entries())
				}
				items, err := doc.Manifest().Items()
				if err != nil {
					return err
				}
				t := table.NewWriter()
				t.SetOutputMirror(cmd.OutOrStdout())
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"ID", "Kind", "Media type", "Path", "Normalized"})
				for _, it := range items {
					t.AppendRow(table.Row{it.ID(), it.Kind(), it.MediaType(), it.Path(), it.NormalizedPath()})
				}
				t.AppendFooter(table.Row{"", "", "", "Items", len(items)})
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "write the manifest entries as JSON")
	return cmd
}

func (a *app) verifyCommand() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "verify <epub|dir>",
		Short: "Check that every internal reference of the book resolves",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDocument(args[0], false, func(doc *epub.Document) error {
				rep := verify.Verify(doc)
				if jsonOut {
					if err := rep.WriteJSON(cmd.OutOrStdout()); err != nil {
						return err
					}
				} else {
					rep.WriteText(cmd.OutOrStdout())
				}
				return reportExit(rep)
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "write the report as JSON")
	return cmd
}

func (a *app) metadataCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "metadata <epub|dir> [key [value]]",
		Short: "Show or set package metadata",
		Long: `With no key every known field is listed. With a key its value is
printed; with a key and a value the value is stored.

Keys: title, isbn, language, creator, publisher, description, date.`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch len(args) {
			case 3:
				return a.withDocument(args[0], true, func(doc *epub.Document) error {
					return doc.Metadata().Set(args[1], args[2])
				})
			case 2:
				return a.withDocument(args[0], false, func(doc *epub.Document) error {
					v, err := doc.Metadata().Get(args[1])
					if err != nil {
						return err
					}
					fmt.Fprintln(out, v)
					return nil
				})
			}
			return a.withDocument(args[0], false, func(doc *epub.Document) error {
				all := doc.Metadata().All()
				t := table.NewWriter()
				t.SetOutputMirror(out)
				t.SetStyle(table.StyleLight)
				t.AppendHeader(table.Row{"Key", "Value"})
				for _, k := range epub.MetadataKeys {
					if v, ok := all[k]; ok {
						t.AppendRow(table.Row{k, v})
					}
				}
				t.Render()
				return nil
			})
		},
	}
}

// Package cli wires the epubnorm commands.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adammathes/epubnorm/internal/config"
	"github.com/adammathes/epubnorm/internal/logger"
	"github.com/adammathes/epubnorm/pkg/archive"
	"github.com/adammathes/epubnorm/pkg/epub"
	"github.com/adammathes/epubnorm/pkg/report"
)

// Exit codes: 0 ok, 1 verification errors, 2 fatal.
const (
	ExitOK      = 0
	ExitInvalid = 1
	ExitFatal   = 2
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps a command error to a process exit code. Errors that do
// not carry a code are fatal.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitFatal
}

// reportExit turns the counts of r into an exit error, nil when clean.
func reportExit(r *report.Report) error {
	switch {
	case r.FatalCount() > 0:
		return &ExitError{Code: ExitFatal, Err: fmt.Errorf("%d fatal problems", r.FatalCount())}
	case r.ErrorCount() > 0:
		return &ExitError{Code: ExitInvalid, Err: fmt.Errorf("%d errors", r.ErrorCount())}
	}
	return nil
}

type app struct {
	cfgFile string
	verbose bool

	cfg *config.Config
	log *zap.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "epubnorm",
		Short: "Normalize the layout of EPUB files",
		Long: `epubnorm renames every file of an EPUB to a content-addressed path under
a flat OEBPS/ tree and rewrites every internal reference (manifest, guide,
TOC, HTML links and CSS url()) so the book keeps working.

Commands accept either a packed .epub or an unpacked directory.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return err
			}
			if a.verbose {
				cfg.Verbose = true
			}
			a.cfg = cfg
			a.log = logger.New(cfg.Verbose)
			if cfg.File != "" {
				a.log.Debug("loaded config", zap.String("file", cfg.File))
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default .epubnorm.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		a.normalizeCommand(),
		a.standardizeCommand(),
		a.compressCommand(),
		a.extractCommand(),
		a.extractFileCommand(),
		a.tocCommand(),
		a.manifestCommand(),
		a.verifyCommand(),
		a.metadataCommand(),
	)
	return rootCmd
}

func (a *app) options(write bool) []epub.Option {
	journal := a.cfg.Journal
	if !write {
		journal = ""
	}
	return []epub.Option{epub.WithLogger(a.log), epub.WithJournal(journal)}
}

// withDocument opens path, a packed EPUB or an unpacked directory, and
// runs fn on it. With write set a packed EPUB is rewritten afterwards;
// otherwise it is only read into memory.
func (a *app) withDocument(path string, write bool, fn func(*epub.Document) error) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if info.IsDir() {
		doc, err := epub.Open(archive.NewDir(path), a.options(write)...)
		if err != nil {
			return err
		}
		return fn(doc)
	}

	if write {
		return epub.Extract(path, a.cfg.Backup, fn, a.options(true)...)
	}
	st, err := archive.LoadZip(path)
	if err != nil {
		return err
	}
	doc, err := epub.Open(st, a.options(false)...)
	if err != nil {
		return err
	}
	return fn(doc)
}

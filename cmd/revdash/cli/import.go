package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/revenue-dashboard/revenue-dashboard/internal/imports"
	"github.com/revenue-dashboard/revenue-dashboard/internal/imports/csvrows"
)

// Importer runs one reconciliation batch.
type Importer interface {
	ImportRows(ctx context.Context, rows []imports.RawRow, filename string) (imports.Result, error)
}

// ImportCLI loads a spreadsheet export from disk and feeds it to the reconciler.
type ImportCLI struct {
	importer Importer
}

// NewImportCLI constructs the helper.
func NewImportCLI(importer Importer) (*ImportCLI, error) {
	if importer == nil {
		return nil, errors.New("import cli: importer is required")
	}
	return &ImportCLI{importer: importer}, nil
}

// ImportOptions defines available flags for the import command. Reader takes
// precedence over File when both are set.
type ImportOptions struct {
	File       string
	Reader     io.Reader
	Filename   string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// ImportCommand parses the file, runs the batch and prints the outcome. It
// returns 10 when some rows were rejected.
func (c *ImportCLI) ImportCommand(ctx context.Context, opts ImportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	src := opts.Reader
	filename := opts.Filename
	if src == nil {
		if opts.File == "" {
			_, _ = fmt.Fprintln(opts.Stderr, "import: -file is required")
			return 1
		}
		f, err := os.Open(opts.File)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "import: open %s: %v\n", opts.File, err)
			return 1
		}
		defer f.Close()
		src = f
		if filename == "" {
			filename = filepath.Base(opts.File)
		}
	}
	if filename == "" {
		filename = "stdin.csv"
	}

	rows, err := csvrows.Parse(src)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "import: parse %s: %v\n", filename, err)
		return 1
	}

	result, err := c.importer.ImportRows(ctx, rows, filename)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "import: %v\n", err)
		return 1
	}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(result); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "import: encode json: %v\n", err)
			return 1
		}
	} else {
		renderImportHuman(opts.Stdout, filename, result)
	}
	if result.Stats.Errors > 0 {
		return 10
	}
	return 0
}

func renderImportHuman(w io.Writer, filename string, result imports.Result) {
	_, _ = fmt.Fprintf(w, "Imported %s (batch %s)\n", filename, result.BatchID)
	_, _ = fmt.Fprintf(w, "  rows: %d  ok: %d  errors: %d\n", result.Stats.Total, result.Stats.Success, result.Stats.Errors)
	for _, rowErr := range result.ErrorReport {
		_, _ = fmt.Fprintf(w, "  - row %d: %s\n", rowErr.Row, rowErr.Error)
	}
}

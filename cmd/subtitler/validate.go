package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"mercator-hq/subtitler/pkg/animation/compiler"
	"mercator-hq/subtitler/pkg/cli"
	stlErrors "mercator-hq/subtitler/pkg/stl/errors"
	"mercator-hq/subtitler/pkg/stl/parser"
	"mercator-hq/subtitler/pkg/templates"
)

var validateFlags struct {
	files  []string
	dir    string
	strict bool
	format string
}

var validateCmd = &cobra.Command{
	Use:     "validate",
	Aliases: []string{"lint"},
	Short:   "Validate template files",
	Long: `Validate animation templates without applying them.

Every template is parsed and compiled: document syntax, required fields,
expression syntax, references to variables and word fields, variable
cycles, animation names and timing values are checked. The report lists
each template's rule count and complexity, then every finding with its
location.

Examples:
  # Validate one file
  subtitler validate --file captions.yaml

  # Validate a directory, warnings fail too
  subtitler validate --dir templates/ --strict

  # JSON output for CI
  subtitler validate --dir templates/ --format json`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringSliceVarP(&validateFlags.files, "file", "f", nil, "template file to validate (repeatable)")
	validateCmd.Flags().StringVarP(&validateFlags.dir, "dir", "d", "", "directory of templates")
	validateCmd.Flags().BoolVar(&validateFlags.strict, "strict", false, "treat warnings as errors")
	validateCmd.Flags().StringVarP(&validateFlags.format, "format", "o", "text", "output format: text, table, json, csv")
}

func runValidate(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(validateFlags.format)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	files := append([]string(nil), validateFlags.files...)
	files = append(files, args...)
	if validateFlags.dir != "" {
		found, err := templateFiles(validateFlags.dir)
		if err != nil {
			return cli.NewCommandError("validate", err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return fmt.Errorf("either --file or --dir must be specified")
	}

	loader := templates.NewLoader(cfg.Templates.MaxFileSize)
	reports := make([]*compiler.ValidationReport, 0, len(files))
	invalid := 0
	for _, file := range files {
		report := validateFile(loader, file)
		if !report.Valid || (validateFlags.strict && len(report.Warnings) > 0) {
			invalid++
		}
		reports = append(reports, report)
	}

	if err := write(cmd.OutOrStdout(), format, cli.ValidationView(reports)); err != nil {
		return err
	}
	if invalid > 0 {
		return cli.NewExitError(2, "%d of %d templates failed validation", invalid, len(reports))
	}
	return nil
}

// validateFile loads and compiles one document. Load failures become a
// report with the document path in place of the template id.
func validateFile(loader *templates.Loader, path string) *compiler.ValidationReport {
	tpl, err := loader.LoadFile(path)
	if err != nil {
		return &compiler.ValidationReport{
			TemplateID: path,
			Valid:      false,
			Errors:     loadFindings(err),
			Warnings:   []*stlErrors.Error{},
		}
	}
	return compiler.Validate(tpl)
}

// loadFindings extracts the template errors behind a load failure.
func loadFindings(err error) []*stlErrors.Error {
	var list *stlErrors.ErrorList
	if errors.As(err, &list) && list.HasErrors() {
		return list.Errors
	}
	var single *stlErrors.Error
	if errors.As(err, &single) {
		return []*stlErrors.Error{single}
	}
	return []*stlErrors.Error{{Type: stlErrors.ErrorTypeIO, Message: err.Error()}}
}

// templateFiles lists the template documents under dir, skipping hidden
// entries.
func templateFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if path != dir && len(name) > 1 && name[0] == '.' {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && parser.IsTemplateFile(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

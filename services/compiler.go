package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"

	"cvbuilder/config"
)

// Format selects the export encoding of a generated biosketch.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatLaTeX Format = "latex"
	FormatHTML  Format = "html"
)

// ParseFormat maps the request's format selector to a Format. The empty
// string defaults to PDF.
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "", "pdf":
		return FormatPDF, true
	case "latex":
		return FormatLaTeX, true
	case "html":
		return FormatHTML, true
	default:
		return "", false
	}
}

// ContentType returns the response content type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatLaTeX:
		return "text/plain"
	case FormatHTML:
		return "text/html"
	default:
		return "application/pdf"
	}
}

// Filename returns the download filename for the format.
func (f Format) Filename() string {
	switch f {
	case FormatLaTeX:
		return "biosketch.tex"
	case FormatHTML:
		return "biosketch.html"
	default:
		return "nih_biosketch.pdf"
	}
}

// CommandRunner executes one external command in dir and returns its
// combined stdout/stderr. Injected so the two-pass policy is testable with a
// stub toolchain.
type CommandRunner func(ctx context.Context, dir, name string, args ...string) (string, error)

// Compiler invokes the external typesetting toolchain against rendered
// source. Every invocation works in a fresh scratch directory that is
// removed on all exit paths.
type Compiler struct {
	Config   *config.Config
	Logger   *zap.Logger
	run      CommandRunner
	lookPath func(string) (string, error)
}

// NewCompiler creates a compiler adapter backed by real subprocesses.
func NewCompiler(cfg *config.Config, logger *zap.Logger) *Compiler {
	return &Compiler{
		Config:   cfg,
		Logger:   logger,
		run:      execRunner,
		lookPath: exec.LookPath,
	}
}

// execRunner runs the command with the scratch directory as working
// directory, capturing combined output.
func execRunner(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// Compile turns rendered LaTeX source into document bytes for the requested
// format. Failures map onto the pipeline error taxonomy.
func (c *Compiler) Compile(ctx context.Context, source string, format Format) ([]byte, error) {
	if format == FormatLaTeX {
		// Raw-markup export: no external process.
		return []byte(source), nil
	}

	if c.Config.CompileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Config.CompileTimeout)
		defer cancel()
	}

	scratch, err := os.MkdirTemp("", "biosketch-*")
	if err != nil {
		return nil, &GenerationError{
			Message: "could not create scratch directory",
			Hint:    "check free space and permissions on the temp filesystem",
			Cause:   err,
		}
	}
	defer os.RemoveAll(scratch)

	texPath := filepath.Join(scratch, "biosketch.tex")
	if err := os.WriteFile(texPath, []byte(source), 0o644); err != nil {
		return nil, &GenerationError{
			Message: "could not stage document source",
			Hint:    "check free space and permissions on the temp filesystem",
			Cause:   err,
		}
	}

	if format == FormatHTML {
		return c.compileHTML(ctx, scratch, texPath)
	}
	return c.compilePDF(ctx, scratch, texPath)
}

// compilePDF runs the LaTeX compiler twice. The second pass is unconditional:
// cross-references and numbering stabilize only after the first pass has
// written its auxiliary files. Pass failures are non-fatal; only a missing or
// empty artifact after both passes is.
func (c *Compiler) compilePDF(ctx context.Context, scratch, texPath string) ([]byte, error) {
	if _, err := c.lookPath(c.Config.LatexBin); err != nil {
		return nil, &ToolchainMissingError{Tool: c.Config.LatexBin, Cause: err}
	}

	diagnostics := ""
	for pass := 1; pass <= 2; pass++ {
		out, err := c.run(ctx, scratch, c.Config.LatexBin,
			"-interaction=nonstopmode", "-output-directory", scratch, texPath)
		diagnostics += fmt.Sprintf("--- pass %d ---\n%s", pass, out)
		if err != nil {
			c.Logger.Warn("LaTeX pass exited non-zero",
				zap.Int("pass", pass), zap.Error(err))
		}
	}

	pdfPath := filepath.Join(scratch, "biosketch.pdf")
	info, err := os.Stat(pdfPath)
	if err != nil {
		return nil, &CompilationError{
			Message:     "LaTeX compilation produced no PDF",
			Diagnostics: diagnostics,
		}
	}
	if info.Size() == 0 {
		return nil, &EmptyOutputError{Artifact: "biosketch.pdf"}
	}

	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, &GenerationError{
			Message: "could not read generated PDF",
			Hint:    "check permissions on the temp filesystem",
			Cause:   err,
		}
	}
	return data, nil
}

// compileHTML converts the LaTeX source file-to-file with the external
// converter, invoked once.
func (c *Compiler) compileHTML(ctx context.Context, scratch, texPath string) ([]byte, error) {
	if _, err := c.lookPath(c.Config.ConverterBin); err != nil {
		return nil, &ToolchainMissingError{Tool: c.Config.ConverterBin, Cause: err}
	}

	htmlPath := filepath.Join(scratch, "biosketch.html")
	out, err := c.run(ctx, scratch, c.Config.ConverterBin, texPath, "-o", htmlPath)
	if err != nil {
		return nil, &CompilationError{
			Message:     "HTML conversion failed",
			Diagnostics: out,
			Cause:       err,
		}
	}

	info, err := os.Stat(htmlPath)
	if err != nil || info.Size() == 0 {
		return nil, &EmptyOutputError{Artifact: "biosketch.html"}
	}

	data, err := os.ReadFile(htmlPath)
	if err != nil {
		return nil, &GenerationError{
			Message: "could not read generated HTML",
			Hint:    "check permissions on the temp filesystem",
			Cause:   err,
		}
	}
	return data, nil
}

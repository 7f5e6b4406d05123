package latexc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"easel/internal/services"
)

// Renderer turns a standalone LaTeX document into a page image. The
// document's assets are already present in workDir.
type Renderer interface {
	Render(ctx context.Context, texSource, workDir string) (string, error)
}

// CommandRenderer shells out to pdflatex and pdftoppm.
type CommandRenderer struct {
	// DPI for rasterization, 150 when zero.
	DPI int
}

func (r *CommandRenderer) dpi() int {
	if r.DPI > 0 {
		return r.DPI
	}
	return 150
}

// Render implements Renderer. Only the first page is rasterized, the
// wrapped environments never span more.
func (r *CommandRenderer) Render(ctx context.Context, texSource, workDir string) (string, error) {
	texPath := filepath.Join(workDir, "instance.tex")
	if err := os.WriteFile(texPath, []byte(texSource), 0o644); err != nil {
		return "", services.Wrap(services.ErrCompilation, "latex", "write", texPath, err)
	}

	compileCmd := exec.CommandContext(ctx, "pdflatex",
		"-interaction=nonstopmode", "-halt-on-error", "-output-directory", workDir, texPath)
	compileCmd.Dir = workDir
	if output, err := compileCmd.CombinedOutput(); err != nil {
		return "", services.Wrap(services.ErrCompilation, "latex", "pdflatex",
			lastLines(string(output), 5), err)
	}

	pdfPath := filepath.Join(workDir, "instance.pdf")
	rasterCmd := exec.CommandContext(ctx, "pdftoppm",
		"-png", "-singlefile", "-f", "1", "-l", "1",
		"-r", fmt.Sprint(r.dpi()), pdfPath, filepath.Join(workDir, "instance"))
	if output, err := rasterCmd.CombinedOutput(); err != nil {
		return "", services.Wrap(services.ErrCompilation, "latex", "pdftoppm",
			lastLines(string(output), 5), err)
	}
	return filepath.Join(workDir, "instance.png"), nil
}

func lastLines(output string, n int) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

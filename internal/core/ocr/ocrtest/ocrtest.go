// Package ocrtest provides fixtures for code that runs the text extractor in tests.
package ocrtest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// BuildPDF writes a minimal PDF with one text line per page. Text must not
// contain unbalanced parentheses or backslashes.
func BuildPDF(pages ...string) []byte {
	n := len(pages)
	fontID := 3 + 2*n
	kids := make([]string, n)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}

	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n),
	}
	for i, text := range pages {
		content := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", fontID, 4+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}
	objs = append(objs, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

// RunnerFunc adapts a function to the extractor's command runner.
type RunnerFunc func(ctx context.Context, name string, args []string) ([]byte, []byte, error)

func (f RunnerFunc) Run(ctx context.Context, name string, _ *slog.Logger, args ...string) ([]byte, []byte, error) {
	return f(ctx, name, args)
}

// TesseractOutput answers every command with stdout.
func TesseractOutput(stdout string) RunnerFunc {
	return func(context.Context, string, []string) ([]byte, []byte, error) {
		return []byte(stdout), nil, nil
	}
}

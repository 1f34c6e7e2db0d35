// Package extract converts uploaded evidence (PDF, Word documents, plain
// text) into plain-text fragments for prompt building. A failure on one
// file never aborts the batch: the failure is inlined as that file's
// fragment and the rest continue.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// Upload is one evidence blob received from the session layer.
type Upload struct {
	Filename string
	MIME     string
	Data     []byte
}

// Fragment is the extracted text of one upload, header included.
type Fragment struct {
	Filename string
	Text     string
}

// Header returns the fragment's document header line.
func (f Fragment) Header() string {
	return fmt.Sprintf("--- UPLOADED DOCUMENT: %s ---", f.Filename)
}

type format int

const (
	formatPDF format = iota
	formatDOCX
	formatText
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	MaxBytes  int64  // per-file size cap; 0 = no limit
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// ExtractAll processes uploads in order and returns one fragment per file
// plus the concatenated full text used for context building.
func (e *Extractor) ExtractAll(ctx context.Context, uploads []Upload) ([]Fragment, string) {
	frags := make([]Fragment, 0, len(uploads))
	var full strings.Builder
	for _, up := range uploads {
		start := time.Now()
		text, err := e.extractOne(ctx, up)
		if err != nil {
			e.logger.Warn("extract.file_failed", "file", up.Filename, "error", err)
			text = fmt.Sprintf("Error reading file %s: %v", up.Filename, err)
		} else {
			e.logger.Debug("extract.file_ok",
				"file", up.Filename,
				"bytes", len(up.Data),
				"text_len", len(text),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		}
		f := Fragment{Filename: up.Filename, Text: text}
		frags = append(frags, f)
		full.WriteString(f.Header())
		full.WriteString("\n")
		full.WriteString(text)
		full.WriteString("\n\n")
	}
	return frags, full.String()
}

func (e *Extractor) extractOne(ctx context.Context, up Upload) (string, error) {
	if e.cfg.MaxBytes > 0 && int64(len(up.Data)) > e.cfg.MaxBytes {
		return "", fmt.Errorf("file exceeds %d bytes", e.cfg.MaxBytes)
	}
	switch detectFormat(up.Filename, up.MIME) {
	case formatPDF:
		return e.pdfToText(ctx, up.Data)
	case formatDOCX:
		return docxToText(up.Data)
	default:
		if !utf8.Valid(up.Data) {
			return "", fmt.Errorf("not valid UTF-8 text")
		}
		return string(up.Data), nil
	}
}

// pdfToText writes the blob to a temp file and runs pdftotext over it.
// Pages arrive separated by form feeds; empty pages are skipped.
func (e *Extractor) pdfToText(ctx context.Context, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "fasc-up-*.pdf")
	if err != nil {
		return "", err
	}
	defer func() {
		if rmErr := os.Remove(tmp.Name()); rmErr != nil {
			e.logger.Warn("extract.tmp_remove_failed", "path", tmp.Name(), "error", rmErr)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", tmp.Name(), "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %v: %s", err, strings.TrimSpace(string(errb)))
	}

	pages := strings.Split(string(out), "\f")
	kept := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p) == "" {
			continue
		}
		kept = append(kept, strings.TrimRight(p, "\n"))
	}
	return strings.Join(kept, "\n"), nil
}

func detectFormat(filename, mime string) format {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "application/pdf":
		return formatPDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return formatDOCX
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return formatPDF
	case ".docx":
		return formatDOCX
	}
	return formatText
}

package compose

import (
	"archive/zip"
	"bytes"
	"fmt"
	"log/slog"

	"github.com/studiolegale/fascicolo/internal/metrics"
)

// Restorer inverts the privacy shield on content headed for the lawyer.
type Restorer interface {
	Restore(text string) string
}

// RenderedDoc is one archive entry to produce, in batch order.
type RenderedDoc struct {
	Kind    string
	Title   string
	Content string
}

// BuildArchive renders every document to DOCX and bundles the lot into a
// single DEFLATE archive with one <kind>.docx entry each. Content passes
// through the restorer before rendering so placeholders never reach the
// final documents.
func BuildArchive(docs []RenderedDoc, restore Restorer, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, d := range docs {
		title := d.Title
		content := d.Content
		if restore != nil {
			title = restore.Restore(title)
			content = restore.Restore(content)
		}

		data, err := RenderDOCX(title, ParseMarkdown(content))
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", d.Kind, err)
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     d.Kind + ".docx",
			Method:   zip.Deflate,
			Modified: archiveEpoch,
		})
		if err != nil {
			return nil, fmt.Errorf("archive entry %s: %w", d.Kind, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("archive write %s: %w", d.Kind, err)
		}
		metrics.Global().GeneratedDocs.Inc()
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("archive close: %w", err)
	}

	logger.Info("compose.archive.ok", "entries", len(docs), "bytes", buf.Len())
	return buf.Bytes(), nil
}

package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	stdout []byte
	stderr []byte
	err    error
}

func (f fakeRunner) Run(_ context.Context, _ string, _ ...string) ([]byte, []byte, error) {
	return f.stdout, f.stderr, f.err
}

func makeDocx(t *testing.T, paragraphs []string) []byte {
	t.Helper()
	var body bytes.Buffer
	body.WriteString(`<?xml version="1.0"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		fmt.Fprintf(&body, `<w:p><w:r><w:t>%s</w:t></w:r></w:p>`, p)
	}
	body.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write(body.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractPlainText(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	frags, full := e.ExtractAll(context.Background(), []Upload{
		{Filename: "note.txt", MIME: "text/plain", Data: []byte("ciao")},
	})
	require.Len(t, frags, 1)
	assert.Equal(t, "ciao", frags[0].Text)
	assert.Contains(t, full, "--- UPLOADED DOCUMENT: note.txt ---")
	assert.Contains(t, full, "ciao")
}

func TestExtractDocxParagraphs(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	data := makeDocx(t, []string{"first", "second"})
	frags, _ := e.ExtractAll(context.Background(), []Upload{
		{Filename: "memo.docx", Data: data},
	})
	require.Len(t, frags, 1)
	assert.Equal(t, "first\nsecond", frags[0].Text)
}

func TestExtractPDFSkipsEmptyPages(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	e.runner = fakeRunner{stdout: []byte("page one\n\f\f  \npage three\n")}
	frags, _ := e.ExtractAll(context.Background(), []Upload{
		{Filename: "atto.pdf", MIME: "application/pdf", Data: []byte("%PDF-1.4")},
	})
	require.Len(t, frags, 1)
	assert.Equal(t, "page one\npage three", frags[0].Text)
}

func TestExtractFailureInlinedAndBatchContinues(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	e.runner = fakeRunner{err: fmt.Errorf("exit status 1"), stderr: []byte("broken xref")}
	frags, full := e.ExtractAll(context.Background(), []Upload{
		{Filename: "bad.pdf", MIME: "application/pdf", Data: []byte("junk")},
		{Filename: "ok.txt", MIME: "text/plain", Data: []byte("still here")},
	})
	require.Len(t, frags, 2)
	assert.Contains(t, frags[0].Text, "Error reading file bad.pdf:")
	assert.Equal(t, "still here", frags[1].Text)
	assert.Contains(t, full, "Error reading file bad.pdf:")
}

func TestExtractInvalidUTF8(t *testing.T) {
	e := NewExtractor(Config{}, nil)
	frags, _ := e.ExtractAll(context.Background(), []Upload{
		{Filename: "blob.bin", Data: []byte{0xff, 0xfe, 0x00, 0x81}},
	})
	require.Len(t, frags, 1)
	assert.Contains(t, frags[0].Text, "Error reading file blob.bin:")
}

package compose

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiolegale/fascicolo/internal/privacy"
	"github.com/studiolegale/fascicolo/internal/repository"
)

func TestParseMarkdownBasics(t *testing.T) {
	blocks := ParseMarkdown("# Titolo\n\n## Sezione\nTesto normale.\n- primo\n* secondo\n")
	require.Len(t, blocks, 5)
	assert.Equal(t, Block{Kind: BlockHeading, Level: 1, Text: "Titolo"}, blocks[0])
	assert.Equal(t, Block{Kind: BlockHeading, Level: 2, Text: "Sezione"}, blocks[1])
	assert.Equal(t, Block{Kind: BlockParagraph, Text: "Testo normale."}, blocks[2])
	assert.Equal(t, Block{Kind: BlockBullet, Text: "primo"}, blocks[3])
	assert.Equal(t, Block{Kind: BlockBullet, Text: "secondo"}, blocks[4])
}

func TestParseMarkdownTable(t *testing.T) {
	blocks := ParseMarkdown("| a | b |\n|---|---|\n| 1 | 2 |")
	require.Len(t, blocks, 1)
	require.Equal(t, BlockTable, blocks[0].Kind)
	require.Len(t, blocks[0].Rows, 2, "separator row dropped")
	assert.Equal(t, []string{"a", "b"}, blocks[0].Rows[0])
	assert.Equal(t, []string{"1", "2"}, blocks[0].Rows[1])
}

func TestParseMarkdownTablePadsShortRows(t *testing.T) {
	blocks := ParseMarkdown("| a | b | c |\n| 1 |\nafter")
	require.Len(t, blocks, 2)
	require.Equal(t, BlockTable, blocks[0].Kind)
	assert.Equal(t, []string{"a", "b", "c"}, blocks[0].Rows[0])
	assert.Equal(t, []string{"1", "", ""}, blocks[0].Rows[1])
	assert.Equal(t, Block{Kind: BlockParagraph, Text: "after"}, blocks[1])
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = b
	}
	return out
}

func docxBody(t *testing.T, docx []byte) string {
	t.Helper()
	entries := readArchive(t, docx)
	body, ok := entries["word/document.xml"]
	require.True(t, ok)
	return string(body)
}

func TestBuildArchiveEntriesAndContent(t *testing.T) {
	san := privacy.NewSanitizer()
	san.Add("Mario Rossi", "CLIENTE")

	docs := []RenderedDoc{
		{Kind: "Summary", Title: "T", Content: "# H\n- a\n- b"},
		{Kind: "Brief", Title: "T", Content: "Difesa di [CLIENTE_1]."},
	}
	data, err := BuildArchive(docs, san, nil)
	require.NoError(t, err)

	entries := readArchive(t, data)
	require.Contains(t, entries, "Summary.docx")
	require.Contains(t, entries, "Brief.docx")

	summary := docxBody(t, entries["Summary.docx"])
	assert.Contains(t, summary, ">H</w:t>")
	assert.Contains(t, summary, "• a")
	assert.Contains(t, summary, "• b")

	brief := docxBody(t, entries["Brief.docx"])
	assert.Contains(t, brief, "Mario Rossi")
	assert.NotContains(t, brief, "[CLIENTE_1]")
}

func TestBuildArchiveDeterministic(t *testing.T) {
	docs := []RenderedDoc{{Kind: "Atto", Title: "T", Content: "# H\n| a | b |\n| 1 | 2 |\npara"}}
	first, err := BuildArchive(docs, nil, nil)
	require.NoError(t, err)
	second, err := BuildArchive(docs, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second, "same content must produce identical bytes")
}

func TestRenderDOCXTableAndJustify(t *testing.T) {
	blocks := ParseMarkdown("| a | b |\n|---|---|\n| 1 | 2 |\nparagrafo finale")
	data, err := RenderDOCX("Titolo", blocks)
	require.NoError(t, err)

	body := docxBody(t, data)
	assert.Contains(t, body, "<w:tbl>")
	assert.Contains(t, body, `<w:jc w:val="both"/>`)
	assert.Equal(t, 2, bytes.Count([]byte(body), []byte("<w:tr>")))
}

func TestExportBillingXLSX(t *testing.T) {
	c := &repository.Case{
		ID: uuid.New(),
		GeneratedDocs: []repository.DocumentSnapshot{
			{Title: "Atto", Origin: repository.OriginAutoGenerated, Model: "gpt-4o-mini",
				Multiplier: 1, InputTokens: 1000, OutputTokens: 2000,
				FixedPart: 10, VariablePart: 0.24, FinalPrice: 10.24,
				CreatedAt: time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)},
		},
	}
	data, err := ExportBillingXLSX(c, nil)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	// an xlsx is itself a zip container
	_, err = zip.NewReader(bytes.NewReader(data), int64(len(data)))
	assert.NoError(t, err)
}

// Package compose renders the LLM's Markdown-tagged content into typed
// Word documents and bundles them into a single downloadable archive. It
// also produces the per-case billing workbook.
package compose

import "strings"

// BlockKind discriminates the parsed block variants.
type BlockKind int

const (
	BlockHeading BlockKind = iota
	BlockBullet
	BlockParagraph
	BlockTable
)

// Block is one rendered unit of a document body.
type Block struct {
	Kind  BlockKind
	Level int        // heading level 1..3
	Text  string     // heading, bullet and paragraph text
	Rows  [][]string // table cells, padded to the widest row
}

// ParseMarkdown walks the content line by line: one to three leading '#'
// make a heading, "- " or "* " a bullet, lines framed by '|' accumulate
// into a table until the first non-pipe line, blank lines are dropped and
// everything else becomes a justified paragraph.
func ParseMarkdown(content string) []Block {
	var blocks []Block
	var table [][]string

	flushTable := func() {
		if len(table) == 0 {
			return
		}
		blocks = append(blocks, Block{Kind: BlockTable, Rows: padRows(table)})
		table = nil
	}

	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") && len(line) > 1 {
			cells := splitTableRow(line)
			if !isSeparatorRow(cells) {
				table = append(table, cells)
			}
			continue
		}
		flushTable()

		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "###"):
			blocks = append(blocks, Block{Kind: BlockHeading, Level: 3, Text: strings.TrimSpace(strings.TrimPrefix(line, "###"))})
		case strings.HasPrefix(line, "##"):
			blocks = append(blocks, Block{Kind: BlockHeading, Level: 2, Text: strings.TrimSpace(strings.TrimPrefix(line, "##"))})
		case strings.HasPrefix(line, "#"):
			blocks = append(blocks, Block{Kind: BlockHeading, Level: 1, Text: strings.TrimSpace(strings.TrimPrefix(line, "#"))})
		case strings.HasPrefix(line, "- "):
			blocks = append(blocks, Block{Kind: BlockBullet, Text: strings.TrimSpace(line[2:])})
		case strings.HasPrefix(line, "* "):
			blocks = append(blocks, Block{Kind: BlockBullet, Text: strings.TrimSpace(line[2:])})
		default:
			blocks = append(blocks, Block{Kind: BlockParagraph, Text: line})
		}
	}
	flushTable()
	return blocks
}

func splitTableRow(line string) []string {
	inner := strings.TrimSuffix(strings.TrimPrefix(line, "|"), "|")
	parts := strings.Split(inner, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

// isSeparatorRow reports whether every cell contains only '-', ':' or
// whitespace (the Markdown header separator).
func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-: \t") != "" {
			return false
		}
	}
	return true
}

func padRows(rows [][]string) [][]string {
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	for i, r := range rows {
		for len(r) < width {
			r = append(r, "")
		}
		rows[i] = r
	}
	return rows
}

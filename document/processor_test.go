package document

import (
	"fmt"
	"strings"
	"testing"

	"github.com/poiesic/chatforge/chunk"
	"github.com/poiesic/chatforge/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcessor(t *testing.T) *Processor {
	splitter, err := chunk.NewSplitter()
	require.NoError(t, err)

	p, err := NewProcessor(splitter)
	require.NoError(t, err)
	return p
}

func TestProcessSpreadsheetScenario(t *testing.T) {
	// Header row ["Name","Score"] and 20 data rows with numeric scores.
	var b strings.Builder
	b.WriteString("Name,Score\n")
	for i := 1; i <= 20; i++ {
		fmt.Fprintf(&b, "Participant %d,%d\n", i, i*5)
	}

	p := newTestProcessor(t)
	chunks, err := p.Process([]byte(b.String()), "text/csv", "scores.csv")
	require.NoError(t, err)

	byKind := map[core.ChunkKind][]core.Chunk{}
	for _, c := range chunks {
		byKind[c.Kind] = append(byKind[c.Kind], c)
	}

	require.Len(t, byKind[core.ChunkKindOverview], 1)
	require.Len(t, byKind[core.ChunkKindData], 2)
	require.Len(t, byKind[core.ChunkKindSummary], 1)

	overview := byKind[core.ChunkKindOverview][0]
	assert.Contains(t, overview.Content, "Rows: 20, Columns: 2")
	assert.Contains(t, overview.Content, "Name (text)")
	assert.Contains(t, overview.Content, "Score (numeric)")

	// Data chunks group 12 then 8 rows and use the detected header names.
	first, second := byKind[core.ChunkKindData][0], byKind[core.ChunkKindData][1]
	assert.Equal(t, "1-12", first.Metadata.RowRange)
	assert.Equal(t, "13-20", second.Metadata.RowRange)
	assert.Contains(t, first.Content, "Name: Participant 1 | Score: 5")
	assert.NotContains(t, first.Content, "Column 1")

	summary := byKind[core.ChunkKindSummary][0]
	assert.Contains(t, summary.Content, "count=20")
	assert.Contains(t, summary.Content, "sum=1050.00")
	assert.Contains(t, summary.Content, "min=5.00")
	assert.Contains(t, summary.Content, "max=100.00")
}

func TestProcessSynthesizesHeaders(t *testing.T) {
	// Entirely numeric first row: no header detected, Column N labels used.
	var b strings.Builder
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, "%d,%d,%d\n", i, i*2, i*3)
	}

	p := newTestProcessor(t)
	chunks, err := p.Process([]byte(b.String()), "text/csv", "numbers.csv")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Contains(t, chunks[0].Content, "Rows: 15")
	assert.Contains(t, chunks[0].Content, "Column 1 (numeric)")
}

func TestProcessDetectsDateColumns(t *testing.T) {
	var b strings.Builder
	b.WriteString("Event,When\n")
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&b, "Launch window %d,2024-03-%02d\n", i, i)
	}

	p := newTestProcessor(t)
	chunks, err := p.Process([]byte(b.String()), "text/csv", "events.csv")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Contains(t, chunks[0].Content, "When (date)")
}

func TestProcessNoSummaryWithoutNumericColumns(t *testing.T) {
	var b strings.Builder
	b.WriteString("City,Country\n")
	for i := 0; i < 14; i++ {
		b.WriteString("Lisbon,Portugal\n")
	}

	p := newTestProcessor(t)
	chunks, err := p.Process([]byte(b.String()), "text/csv", "cities.csv")
	require.NoError(t, err)

	for _, c := range chunks {
		assert.NotEqual(t, core.ChunkKindSummary, c.Kind)
	}
}

func TestProcessMalformedCSV(t *testing.T) {
	p := newTestProcessor(t)
	_, err := p.Process([]byte("a,\"unterminated\nb,c"), "text/csv", "broken.csv")

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "broken.csv", parseErr.Source)
}

func TestProcessEmptyDocument(t *testing.T) {
	p := newTestProcessor(t)
	_, err := p.Process(nil, "text/csv", "empty.csv")
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestDetectHeaders(t *testing.T) {
	t.Run("mixed label row above threshold", func(t *testing.T) {
		rows := [][]string{{"Name", "Score", "3"}, {"a", "1", "2"}}
		headers, dataRows, detected := detectHeaders(rows)
		assert.True(t, detected)
		assert.Equal(t, []string{"Name", "Score", "3"}, headers)
		assert.Len(t, dataRows, 1)
	})

	t.Run("numeric row below threshold", func(t *testing.T) {
		rows := [][]string{{"1", "2"}, {"3", "4"}}
		headers, dataRows, detected := detectHeaders(rows)
		assert.False(t, detected)
		assert.Equal(t, []string{"Column 1", "Column 2"}, headers)
		assert.Len(t, dataRows, 2)
	})
}

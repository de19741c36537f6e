// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package document infers structure from tabular documents and emits
// overview, data, and summary chunks suitable for embedding.
package document

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/poiesic/chatforge/chunk"
	"github.com/poiesic/chatforge/core"
)

const (
	// headerRatio is the minimum fraction of first-row cells that must look
	// like labels for the row to be treated as a header row.
	headerRatio = 0.5

	// typeSampleRows is how many data rows are sampled per column for typing.
	typeSampleRows = 10

	// typeRatio is the minimum fraction of sampled non-empty cells that must
	// match a type for the column to be classified as that type.
	typeRatio = 0.7

	// dataRowsPerChunk is the number of data rows grouped into one data chunk.
	dataRowsPerChunk = 12

	// previewRows is the number of data rows included in the overview chunk.
	previewRows = 3
)

// columnType classifies the dominant cell type of a column.
type columnType string

const (
	columnNumeric columnType = "numeric"
	columnDate    columnType = "date"
	columnText    columnType = "text"
	columnEmpty   columnType = "empty"
)

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-\d{1,2}-\d{1,2}([T ].*)?$`),
	regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}$`),
	regexp.MustCompile(`^\d{1,2}-(?i:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)-\d{2,4}$`),
}

// Processor decodes tabular documents and emits structured chunks.
// Plain-text documents are delegated to the token-bounded splitter.
// A Processor is safe for concurrent use.
type Processor struct {
	splitter *chunk.Splitter
	logger   *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewProcessor creates a document processor.
// The splitter handles free-text content and token estimates.
func NewProcessor(splitter *chunk.Splitter, opts ...Option) (*Processor, error) {
	if splitter == nil {
		return nil, ErrSplitterRequired
	}

	p := &Processor{
		splitter: splitter,
		logger:   slog.Default().With("component", "document-processor"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Process turns raw document bytes into chunks.
//
// Spreadsheet formats produce one overview chunk, grouped data chunks, and one
// summary-statistics chunk per sheet. Any other format is treated as plain
// text and split by the token-bounded splitter. A sheet that fails to parse is
// skipped and reported; sibling sheets are still processed. Chunks shorter
// than core.MinChunkLength characters are dropped.
func (p *Processor) Process(data []byte, mimeType, sourceName string) ([]core.Chunk, error) {
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}

	var (
		sheets     []sheet
		parseFails []*ParseError
		err        error
	)

	switch {
	case isSpreadsheetMIME(mimeType) || strings.HasSuffix(strings.ToLower(sourceName), ".xlsx"):
		sheets, parseFails, err = decodeWorkbook(data, sourceName)
	case isCSVMIME(mimeType) || strings.HasSuffix(strings.ToLower(sourceName), ".csv"):
		sheets, parseFails, err = decodeCSV(data, sourceName)
	default:
		return p.processText(string(data), sourceName)
	}
	if err != nil {
		return nil, err
	}

	for _, fail := range parseFails {
		p.logger.Warn("skipping malformed sheet", "source", fail.Source, "err", fail.Err)
	}

	var chunks []core.Chunk
	for _, sh := range sheets {
		chunks = append(chunks, p.processSheet(sh)...)
	}

	if len(chunks) == 0 {
		if len(parseFails) > 0 {
			return nil, parseFails[0]
		}
		return nil, ErrEmptyDocument
	}

	return chunks, nil
}

// processText splits free text through the token-bounded splitter.
func (p *Processor) processText(text string, sourceName string) ([]core.Chunk, error) {
	segments := p.splitter.Split(strings.TrimSpace(text))
	if len(segments) == 0 {
		return nil, ErrEmptyDocument
	}

	chunks := make([]core.Chunk, 0, len(segments))
	for _, segment := range segments {
		chunks = append(chunks, core.Chunk{
			Content: segment,
			Kind:    core.ChunkKindData,
			Metadata: core.ChunkMetadata{
				SourceName:    sourceName,
				TokenEstimate: p.splitter.EstimateTokens(segment),
			},
		})
	}
	return chunks, nil
}

// processSheet emits the overview, data, and summary chunks for one grid.
func (p *Processor) processSheet(sh sheet) []core.Chunk {
	headers, dataRows, detected := detectHeaders(sh.rows)
	types := classifyColumns(dataRows, len(headers))

	p.logger.Debug("processed sheet structure",
		"sheet", sh.name, "rows", len(dataRows), "columns", len(headers), "headersDetected", detected)

	var chunks []core.Chunk
	chunks = p.appendChunk(chunks, p.overviewChunk(sh.name, headers, types, dataRows))
	for _, c := range p.dataChunks(sh.name, headers, types, dataRows) {
		chunks = p.appendChunk(chunks, c)
	}
	chunks = p.appendChunk(chunks, p.summaryChunk(sh.name, headers, types, dataRows))
	return chunks
}

// appendChunk keeps a chunk only if its content exceeds the minimum length.
func (p *Processor) appendChunk(chunks []core.Chunk, c core.Chunk) []core.Chunk {
	if len(c.Content) <= core.MinChunkLength {
		return chunks
	}
	c.Metadata.TokenEstimate = p.splitter.EstimateTokens(c.Content)
	return append(chunks, c)
}

// detectHeaders decides whether the first row is a header row.
// Returns the header labels, the data rows, and whether headers were detected.
// When no header row is detected, synthetic "Column N" labels are used and the
// first row is kept as data.
func detectHeaders(rows [][]string) ([]string, [][]string, bool) {
	if len(rows) == 0 {
		return nil, nil, false
	}

	first := rows[0]
	labelish := 0
	for _, cell := range first {
		if looksLikeLabel(cell) {
			labelish++
		}
	}

	if len(first) > 0 && float64(labelish)/float64(len(first)) > headerRatio {
		headers := make([]string, len(first))
		for i, cell := range first {
			header := strings.TrimSpace(cell)
			if header == "" {
				header = fmt.Sprintf("Column %d", i+1)
			}
			headers[i] = header
		}
		return headers, rows[1:], true
	}

	headers := make([]string, len(first))
	for i := range first {
		headers[i] = fmt.Sprintf("Column %d", i+1)
	}
	return headers, rows, false
}

// looksLikeLabel reports whether a cell is non-empty, contains at least one
// alphabetic character, and is not a pure number.
func looksLikeLabel(cell string) bool {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return false
	}
	if isNumeric(cell) {
		return false
	}
	for _, r := range cell {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// classifyColumns types each column from a sample of its data rows.
func classifyColumns(dataRows [][]string, width int) []columnType {
	types := make([]columnType, width)
	for col := 0; col < width; col++ {
		types[col] = classifyColumn(dataRows, col)
	}
	return types
}

func classifyColumn(dataRows [][]string, col int) columnType {
	sampled := 0
	numeric := 0
	dates := 0
	nonEmpty := 0

	for row := 0; row < len(dataRows) && sampled < typeSampleRows; row++ {
		sampled++
		if col >= len(dataRows[row]) {
			continue
		}
		cell := strings.TrimSpace(dataRows[row][col])
		if cell == "" {
			continue
		}
		nonEmpty++
		if isNumeric(cell) {
			numeric++
		}
		if isDateLike(cell) {
			dates++
		}
	}

	if nonEmpty == 0 {
		return columnEmpty
	}
	if float64(numeric)/float64(nonEmpty) >= typeRatio {
		return columnNumeric
	}
	if float64(dates)/float64(nonEmpty) >= typeRatio {
		return columnDate
	}
	return columnText
}

func isNumeric(cell string) bool {
	cell = strings.ReplaceAll(strings.TrimSpace(cell), ",", "")
	if cell == "" {
		return false
	}
	_, err := strconv.ParseFloat(cell, 64)
	return err == nil
}

func isDateLike(cell string) bool {
	cell = strings.TrimSpace(cell)
	for _, pattern := range datePatterns {
		if pattern.MatchString(cell) {
			return true
		}
	}
	return false
}

// overviewChunk renders the combined structural description of a sheet:
// dimensions, per-column types, the literal header names, and a short data
// preview.
func (p *Processor) overviewChunk(name string, headers []string, types []columnType, dataRows [][]string) core.Chunk {
	var b strings.Builder
	fmt.Fprintf(&b, "Sheet: %s\n", name)
	fmt.Fprintf(&b, "Rows: %d, Columns: %d\n", len(dataRows), len(headers))

	b.WriteString("Columns:\n")
	for i, header := range headers {
		fmt.Fprintf(&b, "- %s (%s)\n", header, types[i])
	}

	if len(dataRows) > 0 {
		b.WriteString("Preview:\n")
		limit := previewRows
		if len(dataRows) < limit {
			limit = len(dataRows)
		}
		for _, row := range dataRows[:limit] {
			b.WriteString(renderRecord(headers, row))
			b.WriteByte('\n')
		}
	}

	return core.Chunk{
		Content:  strings.TrimSpace(b.String()),
		Kind:     core.ChunkKindOverview,
		Metadata: core.ChunkMetadata{SourceName: name},
	}
}

// dataChunks groups data rows and renders each record as "header: value"
// pairs, using the detected header names. Groups containing numeric columns
// get a per-group summary line.
func (p *Processor) dataChunks(name string, headers []string, types []columnType, dataRows [][]string) []core.Chunk {
	var chunks []core.Chunk
	for start := 0; start < len(dataRows); start += dataRowsPerChunk {
		end := start + dataRowsPerChunk
		if end > len(dataRows) {
			end = len(dataRows)
		}
		group := dataRows[start:end]

		var b strings.Builder
		fmt.Fprintf(&b, "Records from %s (rows %d-%d):\n", name, start+1, end)
		for _, row := range group {
			b.WriteString(renderRecord(headers, row))
			b.WriteByte('\n')
		}

		if summary := groupNumericSummary(headers, types, group); summary != "" {
			b.WriteString(summary)
			b.WriteByte('\n')
		}

		chunks = append(chunks, core.Chunk{
			Content: strings.TrimSpace(b.String()),
			Kind:    core.ChunkKindData,
			Metadata: core.ChunkMetadata{
				SourceName: name,
				RowRange:   fmt.Sprintf("%d-%d", start+1, end),
			},
		})
	}
	return chunks
}

// renderRecord renders one row as "header: value | header: value" pairs.
func renderRecord(headers []string, row []string) string {
	pairs := make([]string, 0, len(headers))
	for i, header := range headers {
		value := ""
		if i < len(row) {
			value = strings.TrimSpace(row[i])
		}
		if value == "" {
			continue
		}
		pairs = append(pairs, fmt.Sprintf("%s: %s", header, value))
	}
	return strings.Join(pairs, " | ")
}

// groupNumericSummary renders averages for the numeric columns of one group.
// Returns "" when the group has no numeric columns.
func groupNumericSummary(headers []string, types []columnType, group [][]string) string {
	parts := make([]string, 0)
	for col, t := range types {
		if t != columnNumeric {
			continue
		}
		values := numericValues(group, col)
		if len(values) == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s avg %.2f", headers[col], mean(values)))
	}
	if len(parts) == 0 {
		return ""
	}
	return "Group summary: " + strings.Join(parts, ", ")
}

// summaryChunk renders sum/average/min/max/count for every numeric column,
// computed over the full column with non-numeric values filtered out.
func (p *Processor) summaryChunk(name string, headers []string, types []columnType, dataRows [][]string) core.Chunk {
	var b strings.Builder
	fmt.Fprintf(&b, "Summary statistics for %s:\n", name)

	numericColumns := 0
	for col, t := range types {
		if t != columnNumeric {
			continue
		}
		values := numericValues(dataRows, col)
		if len(values) == 0 {
			continue
		}
		numericColumns++

		sum := 0.0
		minimum := values[0]
		maximum := values[0]
		for _, v := range values {
			sum += v
			if v < minimum {
				minimum = v
			}
			if v > maximum {
				maximum = v
			}
		}
		fmt.Fprintf(&b, "- %s: sum=%.2f, average=%.2f, min=%.2f, max=%.2f, count=%d\n",
			headers[col], sum, sum/float64(len(values)), minimum, maximum, len(values))
	}

	if numericColumns == 0 {
		// No numeric data: emit nothing; the empty chunk falls below the
		// minimum length and is dropped by appendChunk.
		return core.Chunk{Kind: core.ChunkKindSummary}
	}

	return core.Chunk{
		Content:  strings.TrimSpace(b.String()),
		Kind:     core.ChunkKindSummary,
		Metadata: core.ChunkMetadata{SourceName: name},
	}
}

// numericValues parses one column, filtering out non-numeric cells.
func numericValues(rows [][]string, col int) []float64 {
	var values []float64
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		cell := strings.ReplaceAll(strings.TrimSpace(row[col]), ",", "")
		if cell == "" {
			continue
		}
		if v, err := strconv.ParseFloat(cell, 64); err == nil {
			values = append(values, v)
		}
	}
	return values
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func isSpreadsheetMIME(mimeType string) bool {
	switch mimeType {
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel":
		return true
	}
	return false
}

func isCSVMIME(mimeType string) bool {
	return mimeType == "text/csv" || mimeType == "application/csv"
}

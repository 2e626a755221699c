// Package storage persists the news set as one CSV file. The file is read
// whole at the start of a run and rewritten whole at the end.
package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/deusflow/trafficwatch/internal/fileutil"
	"github.com/deusflow/trafficwatch/internal/news"
)

// ErrWrite marks a failure to persist the store. Callers treat it as fatal.
var ErrWrite = errors.New("storage: write failed")

const utf8BOM = "\uFEFF"

// Header is the column order written to disk.
var Header = []string{
	"date", "country", "continent", "title", "summary", "url", "source",
	"category", "category_group", "news_type", "traffic_impact", "priority",
	"confidence", "validation", "provenance",
}

// CSVStore reads and writes the news CSV.
type CSVStore struct {
	path string
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

func (s *CSVStore) Path() string { return s.path }

// Load reads every row. A missing file is an empty store. Columns are
// matched by header name, so older files without the newer columns load
// with those fields empty.
func (s *CSVStore) Load() ([]news.Item, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return Decode(bytes.NewReader(data))
}

// Decode parses CSV content with a header row.
func Decode(r io.Reader) ([]news.Item, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimPrefix(h, utf8BOM)
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := index["title"]; !ok {
		return nil, fmt.Errorf("header has no title column")
	}

	var items []news.Item
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		it := news.Item{
			Country:       field("country"),
			Continent:     field("continent"),
			Title:         field("title"),
			Summary:       field("summary"),
			URL:           field("url"),
			Source:        field("source"),
			Category:      field("category"),
			CategoryGroup: news.CategoryGroup(field("category_group")),
			Type:          news.Type(field("news_type")),
			Priority:      news.Priority(field("priority")),
			TrafficImpact: field("traffic_impact"),
			Confidence:    field("confidence"),
			Validation:    field("validation"),
			Provenance:    firstNonEmpty(field("provenance"), field("api_source")),
		}
		if d, err := news.ParseDate(field("date")); err == nil {
			it.Date = d
		}
		items = append(items, it)
	}
	return items, nil
}

// Save rewrites the whole file, newest date first. Rows with equal dates
// keep their relative order. The write is atomic.
func (s *CSVStore) Save(items []news.Item) error {
	sorted := make([]news.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	var buf bytes.Buffer
	if err := Encode(&buf, sorted); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	if err := fileutil.WriteAtomic(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrWrite, err)
	}
	return nil
}

// Encode writes a BOM, the header and one row per item.
func Encode(w io.Writer, items []news.Item) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, it := range items {
		row := []string{
			it.DateString(),
			it.Country,
			it.Continent,
			it.Title,
			it.Summary,
			it.URL,
			it.Source,
			it.Category,
			string(it.CategoryGroup),
			string(it.Type),
			it.TrafficImpact,
			string(it.Priority),
			it.Confidence,
			it.Validation,
			it.Provenance,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Record is one CSV record. Row is its 1-based ordinal with every blank
// line counted as an empty record; Line is the physical line it starts on.
// They differ once a quoted field spans lines.
type Record struct {
	Row    int
	Line   int
	Fields []string
}

// RowSource yields the records of one export file in order.
type RowSource interface {
	// Name identifies the file for provenance.
	Name() string
	// Head returns the first record without consuming it, or io.EOF.
	Head() ([]string, error)
	// Read returns the next record, or io.EOF.
	Read() (Record, error)
}

// Dialect configures the CSV reader. The zero value is comma-separated.
type Dialect struct {
	Delimiter        rune
	LazyQuotes       bool
	TrimLeadingSpace bool
}

// FileSource reads records from a CSV file on disk.
type FileSource struct {
	name   string
	f      *os.File
	cr     *csv.Reader
	peeked *Record
	err    error
	row    int // ordinal of the last record read
	end    int // physical line the last record ended on
}

// OpenFile opens path for reading. encoding is a WHATWG label such as
// "utf-8", "gbk" or "gb18030"; empty means UTF-8. A UTF-8 BOM is dropped.
func OpenFile(path string, d Dialect, encoding string) (*FileSource, error) {
	if encoding == "" {
		encoding = "utf-8"
	}
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", encoding, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	cr := csv.NewReader(transform.NewReader(f, unicode.BOMOverride(enc.NewDecoder())))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = d.LazyQuotes
	cr.TrimLeadingSpace = d.TrimLeadingSpace
	if d.Delimiter != 0 {
		cr.Comma = d.Delimiter
	}

	return &FileSource{name: path, f: f, cr: cr}, nil
}

// Name returns the path the file was opened with.
func (s *FileSource) Name() string { return s.name }

// Head peeks at the first record.
func (s *FileSource) Head() ([]string, error) {
	if s.peeked == nil && s.err == nil {
		rec, err := s.next()
		if err != nil {
			s.err = err
		} else {
			s.peeked = &rec
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.peeked.Fields, nil
}

// Read returns the next record.
func (s *FileSource) Read() (Record, error) {
	if s.peeked != nil {
		rec := *s.peeked
		s.peeked = nil
		return rec, nil
	}
	if s.err != nil {
		err := s.err
		s.err = nil
		return Record{}, err
	}
	return s.next()
}

func (s *FileSource) next() (Record, error) {
	fields, err := s.cr.Read()
	if errors.Is(err, io.EOF) {
		return Record{}, io.EOF
	}
	if err != nil {
		return Record{}, fmt.Errorf("reading %s: %w", filepath.Base(s.name), err)
	}
	line, _ := s.cr.FieldPos(0)
	// encoding/csv drops blank lines; each one still counts as a row.
	s.row += line - s.end
	last := len(fields) - 1
	lastLine, _ := s.cr.FieldPos(last)
	s.end = lastLine + strings.Count(fields[last], "\n")
	return Record{Row: s.row, Line: line, Fields: fields}, nil
}

// Close closes the underlying file.
func (s *FileSource) Close() error {
	return s.f.Close()
}

// SliceSource serves records from memory. Every element, including empty
// ones standing for blank lines, occupies one line.
type SliceSource struct {
	name string
	rows [][]string
	pos  int
}

// NewSliceSource returns a source over rows identified as name.
func NewSliceSource(name string, rows [][]string) *SliceSource {
	return &SliceSource{name: name, rows: rows}
}

// Name returns the identity given to NewSliceSource.
func (s *SliceSource) Name() string { return s.name }

// Head returns the first row.
func (s *SliceSource) Head() ([]string, error) {
	if len(s.rows) == 0 {
		return nil, io.EOF
	}
	return s.rows[0], nil
}

// Read returns the next row.
func (s *SliceSource) Read() (Record, error) {
	if s.pos >= len(s.rows) {
		return Record{}, io.EOF
	}
	rec := Record{Row: s.pos + 1, Line: s.pos + 1, Fields: s.rows[s.pos]}
	s.pos++
	return rec, nil
}

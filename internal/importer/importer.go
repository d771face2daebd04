package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cleared-dev/sui/internal/model"
)

// Importer converts one kind of export file into transactions.
type Importer interface {
	Name() string
	Identify(path string) (bool, error)
	Open(path string) (*FileSource, error)
	Extract(src RowSource, existing []model.Transaction) ([]model.Transaction, error)
}

// Registry holds named importers.
type Registry struct {
	importers map[string]Importer
	order     []string
}

// FileInfo describes a CSV file waiting in an import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty importer registry.
func NewRegistry() *Registry {
	return &Registry{importers: make(map[string]Importer)}
}

// Register adds an importer. Panics on duplicate name.
func (r *Registry) Register(imp Importer) {
	key := strings.ToLower(imp.Name())
	if _, ok := r.importers[key]; ok {
		panic("duplicate importer: " + key)
	}
	r.importers[key] = imp
	r.order = append(r.order, key)
}

// Get returns the importer registered as name, or nil.
func (r *Registry) Get(name string) Importer {
	return r.importers[strings.ToLower(name)]
}

// Identify returns the first importer, in registration order, that accepts path.
func (r *Registry) Identify(path string) (Importer, error) {
	for _, key := range r.order {
		imp := r.importers[key]
		ok, err := imp.Identify(path)
		if err != nil {
			return nil, fmt.Errorf("%s: identifying %s: %w", key, filepath.Base(path), err)
		}
		if ok {
			return imp, nil
		}
	}
	return nil, nil
}

// processedDir is the subdirectory extracted files are moved into.
const processedDir = "processed"

// Scan returns the CSV files directly inside dir.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves dir/fileName into dir/processed/.
func MarkProcessed(dir, fileName string) error {
	dstDir := filepath.Join(dir, processedDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	src := filepath.Join(dir, fileName)
	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

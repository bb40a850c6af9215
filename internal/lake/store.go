package lake

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/Kamal2131/stock-etl-airflow/internal/market"
	"github.com/Kamal2131/stock-etl-airflow/pkg/logger"
)

// Layer separates unmodified extractions from cleaned datasets.
type Layer string

const (
	LayerRaw       Layer = "raw"
	LayerProcessed Layer = "processed"
	LayerAnalytics Layer = "analytics"
)

// Scope identifies a partition family: the pipeline domain plus its key
// value (the underlying name for derivatives, the universe name for
// equity).
type Scope struct {
	Domain string // "fno" or "equity"
	Key    string
}

// FNOScope scopes partitions for one derivatives underlying.
func FNOScope(underlying string) Scope {
	return Scope{Domain: "fno", Key: underlying}
}

// EquityScope scopes partitions for an index universe.
func EquityScope(universe string) Scope {
	return Scope{Domain: "equity", Key: universe}
}

// keyField is the hive-style partition field name for the scope's key.
func (s Scope) keyField() string {
	if s.Domain == "equity" {
		return "universe"
	}
	return "underlying"
}

const (
	dateLayout  = "2006-01-02"
	datafile    = "data.parquet"
	datePrefix  = "date="
	parquetGlob = "*.parquet"
)

// Store reads and writes date-partitioned parquet datasets under a local
// base path. Partition layout:
//
//	<base>/<domain>/<layer>/<keyField>=<key>/date=<YYYY-MM-DD>/data.parquet
type Store struct {
	basePath string
	logger   *logger.Logger
}

func NewStore(basePath string, log *logger.Logger) *Store {
	return &Store{
		basePath: basePath,
		logger:   log.WithField("component", "lake"),
	}
}

// PartitionDir returns the directory for one (scope, layer, date) partition.
func (s *Store) PartitionDir(scope Scope, layer Layer, date time.Time) string {
	return filepath.Join(
		s.basePath,
		scope.Domain,
		string(layer),
		fmt.Sprintf("%s=%s", scope.keyField(), scope.Key),
		datePrefix+date.Format(dateLayout),
	)
}

// Write persists a dataset into its partition and returns the written file
// path. An empty dataset is a no-op returning "". When the partition file
// already exists and overwrite is false, the existing path is returned
// untouched. The file appears atomically: rows are written to a temp file
// which is renamed into place.
func (s *Store) Write(dataset market.Dataset, scope Scope, layer Layer, date time.Time, overwrite bool) (string, error) {
	if dataset.Empty() {
		s.logger.WithFields(map[string]interface{}{
			"scope": scope.Key,
			"layer": string(layer),
		}).Warn("Skipping write of empty dataset")
		return "", nil
	}

	dir := s.PartitionDir(scope, layer, date)
	path := filepath.Join(dir, datafile)

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			s.logger.WithField("path", path).Info("Partition already exists, skipping write")
			return path, nil
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create partition dir: %w", err)
	}

	records := make([]record, len(dataset))
	for i, row := range dataset {
		records[i] = toRecord(row)
	}

	if err := s.writeFile(path, records); err != nil {
		return "", err
	}

	s.logger.WithFields(map[string]interface{}{
		"path": path,
		"rows": len(records),
	}).Info("Wrote partition")

	return path, nil
}

func (s *Store) writeFile(path string, records []record) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".data-*.parquet.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	writer := parquet.NewGenericWriter[record](tmp, parquet.Compression(&parquet.Snappy))
	if _, err := writer.Write(records); err != nil {
		tmp.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Read loads every parquet file in a partition and concatenates the rows.
// A missing partition yields an empty dataset, not an error. Files that
// fail to parse are skipped with a warning so one corrupt file does not
// hide the rest.
func (s *Store) Read(scope Scope, layer Layer, date time.Time) (market.Dataset, error) {
	dir := s.PartitionDir(scope, layer, date)

	matches, err := filepath.Glob(filepath.Join(dir, parquetGlob))
	if err != nil {
		return nil, fmt.Errorf("glob partition: %w", err)
	}
	if len(matches) == 0 {
		return market.Dataset{}, nil
	}
	sort.Strings(matches)

	var dataset market.Dataset
	for _, path := range matches {
		records, err := parquet.ReadFile[record](path)
		if err != nil {
			s.logger.WithError(err).WithField("path", path).Warn("Skipping unreadable parquet file")
			continue
		}
		for _, rec := range records {
			dataset = append(dataset, toRow(rec))
		}
	}

	return dataset, nil
}

// Partition describes one stored partition.
type Partition struct {
	Scope Scope
	Layer Layer
	Date  time.Time
	Path  string
	Size  int64
}

// ListPartitions walks the lake and returns every partition for a scope
// and layer, oldest first.
func (s *Store) ListPartitions(scope Scope, layer Layer) ([]Partition, error) {
	parent := filepath.Join(
		s.basePath,
		scope.Domain,
		string(layer),
		fmt.Sprintf("%s=%s", scope.keyField(), scope.Key),
	)

	entries, err := os.ReadDir(parent)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}

	var partitions []Partition
	for _, entry := range entries {
		if !entry.IsDir() || len(entry.Name()) <= len(datePrefix) {
			continue
		}
		date, err := time.ParseInLocation(dateLayout, entry.Name()[len(datePrefix):], time.Local)
		if err != nil {
			continue
		}

		path := filepath.Join(parent, entry.Name(), datafile)
		var size int64
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}

		partitions = append(partitions, Partition{
			Scope: scope,
			Layer: layer,
			Date:  date,
			Path:  path,
			Size:  size,
		})
	}

	sort.Slice(partitions, func(i, j int) bool { return partitions[i].Date.Before(partitions[j].Date) })
	return partitions, nil
}

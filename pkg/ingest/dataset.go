package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrDataset marks missing or malformed dataset input. Loading fails
// before any graph write.
var ErrDataset = errors.New("invalid dataset")

const (
	edgesFileName    = "edges.csv"
	featuresFileName = "features.json"
	targetFileName   = "target.csv"
)

// Edge is one undirected pair from the edge list.
type Edge struct {
	Source int64
	Target int64
}

// TargetRow is one row of the target table: an article identifier, its
// display name and its traffic score.
type TargetRow struct {
	ID      int64
	Name    string
	Traffic float64
}

// Dataset is the parsed tabular input of the ingestion pipeline.
type Dataset struct {
	Edges    []Edge
	Features map[int64][]int64
	Targets  []TargetRow
}

// LoadDataset reads and validates the three dataset files from dir.
func LoadDataset(dir string) (*Dataset, error) {
	edges, err := loadEdges(filepath.Join(dir, edgesFileName))
	if err != nil {
		return nil, err
	}

	features, err := loadFeatures(filepath.Join(dir, featuresFileName))
	if err != nil {
		return nil, err
	}

	targets, err := loadTargets(filepath.Join(dir, targetFileName))
	if err != nil {
		return nil, err
	}

	return &Dataset{
		Edges:    edges,
		Features: features,
		Targets:  targets,
	}, nil
}

func loadEdges(path string) ([]Edge, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	srcCol, ok := columnIndex(header, "id_1")
	if !ok {
		return nil, fmt.Errorf("%w: %s missing column %q", ErrDataset, filepath.Base(path), "id_1")
	}
	dstCol, ok := columnIndex(header, "id_2")
	if !ok {
		return nil, fmt.Errorf("%w: %s missing column %q", ErrDataset, filepath.Base(path), "id_2")
	}

	edges := make([]Edge, 0, len(rows))
	for i, row := range rows {
		if len(row) <= srcCol || len(row) <= dstCol {
			return nil, fmt.Errorf("%w: %s row %d: too few columns", ErrDataset, filepath.Base(path), i+1)
		}
		source, err := strconv.ParseInt(strings.TrimSpace(row[srcCol]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: bad id_1 %q", ErrDataset, filepath.Base(path), i+1, row[srcCol])
		}
		target, err := strconv.ParseInt(strings.TrimSpace(row[dstCol]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: bad id_2 %q", ErrDataset, filepath.Base(path), i+1, row[dstCol])
		}
		edges = append(edges, Edge{Source: source, Target: target})
	}

	return edges, nil
}

func loadTargets(path string) ([]TargetRow, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	idCol, ok := columnIndex(header, "id")
	if !ok {
		return nil, fmt.Errorf("%w: %s missing column %q", ErrDataset, filepath.Base(path), "id")
	}
	nameCol, ok := columnIndex(header, "name")
	if !ok {
		return nil, fmt.Errorf("%w: %s missing column %q", ErrDataset, filepath.Base(path), "name")
	}
	trafficCol, ok := columnIndex(header, "traffic")
	if !ok {
		return nil, fmt.Errorf("%w: %s missing column %q", ErrDataset, filepath.Base(path), "traffic")
	}

	targets := make([]TargetRow, 0, len(rows))
	for i, row := range rows {
		if len(row) <= idCol || len(row) <= nameCol || len(row) <= trafficCol {
			return nil, fmt.Errorf("%w: %s row %d: too few columns", ErrDataset, filepath.Base(path), i+1)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(row[idCol]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: bad id %q", ErrDataset, filepath.Base(path), i+1, row[idCol])
		}
		traffic, err := strconv.ParseFloat(strings.TrimSpace(row[trafficCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: bad traffic %q", ErrDataset, filepath.Base(path), i+1, row[trafficCol])
		}
		targets = append(targets, TargetRow{
			ID:      id,
			Name:    strings.TrimSpace(row[nameCol]),
			Traffic: traffic,
		})
	}

	return targets, nil
}

func loadFeatures(path string) (map[int64][]int64, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrDataset, filepath.Base(path), err)
	}

	raw := map[string][]int64{}
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrDataset, filepath.Base(path), err)
	}

	features := make(map[int64][]int64, len(raw))
	for key, values := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: bad node id %q", ErrDataset, filepath.Base(path), key)
		}
		features[id] = values
	}

	return features, nil
}

// readCSV returns the data rows and the header of a CSV file, skipping
// rows that are entirely blank.
func readCSV(path string) ([][]string, []string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: reading %s: %v", ErrDataset, filepath.Base(path), err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var header []string
	var rows [][]string

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: parsing %s: %v", ErrDataset, filepath.Base(path), err)
		}

		isEmpty := true
		for _, field := range record {
			if strings.TrimSpace(field) != "" {
				isEmpty = false
				break
			}
		}
		if isEmpty {
			continue
		}

		if header == nil {
			header = record
			continue
		}
		rows = append(rows, record)
	}

	if header == nil {
		return nil, nil, fmt.Errorf("%w: %s is empty", ErrDataset, filepath.Base(path))
	}

	return rows, header, nil
}

func columnIndex(header []string, name string) (int, bool) {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), name) {
			return i, true
		}
	}
	return 0, false
}

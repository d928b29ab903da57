package catalog

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/phigros-go/phigros-backend/internal/model"
)

// csvColumns is the fixed header order of the chart-constants CSV file:
// id,name,composer,illustrator,ez,hd,in,at (constants blank when absent).
var csvColumns = []string{"id", "name", "composer", "illustrator", "ez", "hd", "in", "at"}

// LoadCSV decodes the chart-constants CSV file into catalog entries,
// following the teacher's internal/geo/loader.go one-loader-per-format
// idiom: a single function, eris-wrapped errors, no partial-success
// states surfaced to the caller.
func LoadCSV(path string) ([]*model.ChartEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: open charts csv")
	}
	defer f.Close()
	return decodeCSV(f)
}

func decodeCSV(r io.Reader) ([]*model.ChartEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "catalog: read csv header")
	}
	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[h] = i
	}
	for _, want := range csvColumns {
		if _, ok := colIdx[want]; !ok {
			return nil, eris.Errorf("catalog: csv missing required column %q", want)
		}
	}

	var entries []*model.ChartEntry
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "catalog: read csv row")
		}

		entry := &model.ChartEntry{
			SongID:      row[colIdx["id"]],
			Name:        row[colIdx["name"]],
			Composer:    row[colIdx["composer"]],
			Illustrator: row[colIdx["illustrator"]],
			Constants:   map[model.Difficulty]float64{},
		}
		difficultyCols := map[model.Difficulty]string{
			model.DifficultyEZ: "ez",
			model.DifficultyHD: "hd",
			model.DifficultyIN: "in",
			model.DifficultyAT: "at",
		}
		for diff, col := range difficultyCols {
			raw := row[colIdx[col]]
			if raw == "" {
				continue
			}
			val, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, eris.Wrapf(err, "catalog: parse constant %q for %s", raw, entry.SongID)
			}
			entry.Constants[diff] = val
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// aliasFile is the YAML shape of the alias file: song_id -> list of
// alternate search names.
type aliasFile map[string][]string

// LoadYAMLAliases decodes the alias YAML file and merges the aliases
// onto the matching entries by song id. Song ids present in the alias
// file but absent from entries are silently ignored (the catalog is
// authoritative on which songs exist).
func LoadYAMLAliases(path string, entries []*model.ChartEntry) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrap(err, "catalog: open aliases yaml")
	}
	defer f.Close()

	var raw aliasFile
	if err := yaml.NewDecoder(f).Decode(&raw); err != nil {
		return eris.Wrap(err, "catalog: decode aliases yaml")
	}

	bySongID := make(map[string]*model.ChartEntry, len(entries))
	for _, e := range entries {
		bySongID[e.SongID] = e
	}
	for songID, aliases := range raw {
		if e, ok := bySongID[songID]; ok {
			e.Aliases = aliases
		}
	}
	return nil
}

// LoadAndBuild is the full startup path: read both files and build the
// searchable Catalog.
func LoadAndBuild(csvPath, yamlPath string) (*Catalog, error) {
	entries, err := LoadCSV(csvPath)
	if err != nil {
		return nil, err
	}
	if yamlPath != "" {
		if err := LoadYAMLAliases(yamlPath, entries); err != nil {
			return nil, err
		}
	}
	return New(entries), nil
}

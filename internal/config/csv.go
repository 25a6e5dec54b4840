package config

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"simago/pkg/domain"
)

// Canonical column names of the data and conditions CSV files.
const (
	colOption           = "option"
	colValue            = "value"
	colLabel            = "label"
	colConditionalIndex = "conditional_index"
	colPropertyName     = "property_name"
	colRelation         = "relation"
)

// headerAliases maps accepted alternative column names onto the canonical
// ones.
var headerAliases = map[string]string{
	"condition_group_index": colConditionalIndex,
	"referenced_property":   colPropertyName,
	"operand":               colOption,
}

var (
	dataColumns       = []string{colOption, colValue, colLabel, colConditionalIndex}
	conditionsColumns = []string{colConditionalIndex, colPropertyName, colOption, colRelation}
)

// ReadDataFile parses a data CSV with columns option, value, label and
// conditional_index, in any order.
func ReadDataFile(path, property string) ([]domain.DataSourceRow, error) {
	records, idx, err := readTable(path, property, dataColumns)
	if err != nil {
		return nil, err
	}
	rows := make([]domain.DataSourceRow, 0, len(records))
	for i, rec := range records {
		line := i + 2
		option, err := parseInt(rec[idx[colOption]])
		if err != nil {
			return nil, cellError(property, path, line, colOption, err)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(rec[idx[colValue]]), 64)
		if err != nil {
			return nil, cellError(property, path, line, colValue, err)
		}
		group, err := parseInt(rec[idx[colConditionalIndex]])
		if err != nil {
			return nil, cellError(property, path, line, colConditionalIndex, err)
		}
		rows = append(rows, domain.DataSourceRow{
			Option:              option,
			Value:               value,
			Label:               strings.TrimSpace(rec[idx[colLabel]]),
			ConditionGroupIndex: group,
		})
	}
	return rows, nil
}

// ReadConditionsFile parses a conditions CSV with columns
// conditional_index, property_name, option and relation.
func ReadConditionsFile(path, property string) ([]domain.ConditionRow, error) {
	records, idx, err := readTable(path, property, conditionsColumns)
	if err != nil {
		return nil, err
	}
	rows := make([]domain.ConditionRow, 0, len(records))
	for i, rec := range records {
		line := i + 2
		group, err := parseInt(rec[idx[colConditionalIndex]])
		if err != nil {
			return nil, cellError(property, path, line, colConditionalIndex, err)
		}
		operand, err := strconv.ParseFloat(strings.TrimSpace(rec[idx[colOption]]), 64)
		if err != nil {
			return nil, cellError(property, path, line, colOption, err)
		}
		rel, err := domain.ParseRelation(rec[idx[colRelation]])
		if err != nil {
			return nil, cellError(property, path, line, colRelation, err)
		}
		rows = append(rows, domain.ConditionRow{
			ConditionGroupIndex: group,
			ReferencedProperty:  strings.TrimSpace(rec[idx[colPropertyName]]),
			Operand:             operand,
			Relation:            rel,
		})
	}
	return rows, nil
}

// readTable reads a whole CSV and maps each wanted column to its index. The
// header must hold exactly the wanted columns.
func readTable(path, property string, want []string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, domain.ConfigError{Property: property, Reason: path + " is empty"}
	}
	if err != nil {
		return nil, nil, domain.ConfigError{Property: property, Reason: "read " + path, Err: err}
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if canon, ok := headerAliases[name]; ok {
			name = canon
		}
		idx[name] = i
	}
	if len(header) != len(want) || !sameColumns(idx, want) {
		got := append([]string(nil), header...)
		sort.Strings(got)
		return nil, nil, domain.ConfigError{
			Property: property,
			Reason:   fmt.Sprintf("%s does not contain the necessary columns: want %s, got %s", path, strings.Join(want, ","), strings.Join(got, ",")),
		}
	}
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, domain.ConfigError{Property: property, Reason: "read " + path, Err: err}
	}
	return records, idx, nil
}

func sameColumns(idx map[string]int, want []string) bool {
	if len(idx) != len(want) {
		return false
	}
	for _, w := range want {
		if _, ok := idx[w]; !ok {
			return false
		}
	}
	return true
}

// parseInt accepts integral floats such as "1.0", which spreadsheet exports
// produce.
func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return int(f), nil
}

func cellError(property, path string, line int, column string, err error) error {
	return domain.ConfigError{Property: property, Reason: fmt.Sprintf("%s line %d, column %s", path, line, column), Err: err}
}

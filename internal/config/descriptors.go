package config

import (
	"fmt"

	"simago/pkg/domain"
)

// Descriptor reads the CSV files a YAML points at and assembles the
// property descriptor.
func (f File) Descriptor() (domain.Descriptor, error) {
	desc := domain.Descriptor{
		PropertyName: f.PropertyName,
		DataType:     domain.DataType(f.DataType),
	}
	if f.Conditions != nil {
		conds, err := ReadConditionsFile(*f.Conditions, f.PropertyName)
		if err != nil {
			return domain.Descriptor{}, err
		}
		desc.Conditions = conds
	}
	if desc.DataType.Discrete() {
		rows, err := ReadDataFile(f.DataFile, f.PropertyName)
		if err != nil {
			return domain.Descriptor{}, err
		}
		desc.DataSource = rows
		return desc, nil
	}
	params := make([][]float64, len(f.PDFParameters))
	for i, p := range f.PDFParameters {
		params[i] = append([]float64(nil), p...)
	}
	desc.PDF = &domain.PDFReference{FactoryName: f.PDF, Parameters: params}
	return desc, nil
}

// LoadDescriptors finds, loads and assembles every property descriptor in
// folder. An empty folder is a ConfigError.
func LoadDescriptors(folder string) ([]domain.Descriptor, error) {
	paths, err := FindYAMLs(folder)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, domain.ConfigError{Reason: fmt.Sprintf("no YAML files found in %s", folder)}
	}
	files, err := LoadYAMLs(paths)
	if err != nil {
		return nil, err
	}
	descs := make([]domain.Descriptor, 0, len(files))
	for _, f := range files {
		d, err := f.Descriptor()
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	return descs, nil
}

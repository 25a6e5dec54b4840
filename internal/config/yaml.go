// Package config discovers and loads property descriptors: one YAML file per
// property, pointing at CSV files with the option weights and the condition
// clauses.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"simago/pkg/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// File is one decoded property YAML.
type File struct {
	PropertyName  string      `yaml:"property_name" validate:"required"`
	DataType      string      `yaml:"data_type" validate:"required,oneof=categorical ordinal continuous"`
	DataFile      string      `yaml:"data_file" validate:"required_unless=DataType continuous"`
	Conditions    *string     `yaml:"conditions" validate:"omitempty,endswith=.csv"`
	PDF           string      `yaml:"pdf" validate:"required_if=DataType continuous"`
	PDFParameters [][]float64 `yaml:"pdf_parameters" validate:"required_if=DataType continuous"`

	// Path is the file the descriptor was read from.
	Path string `yaml:"-"`
}

// FindYAMLs returns every *.yml and *.yaml file below folder, sorted.
func FindYAMLs(folder string) ([]string, error) {
	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("yaml folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("yaml folder %s is not a directory", folder)
	}
	var paths []string
	err = filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yml", ".yaml":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadYAML decodes and validates one property YAML. Relative data and
// condition paths resolve against the working directory first, then against
// the YAML file's directory.
func LoadYAML(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, domain.ConfigError{Reason: path + ", improper YAML syntax", Err: err}
	}
	f.Path = path
	f.PropertyName = strings.TrimSpace(f.PropertyName)
	if f.Conditions != nil && strings.TrimSpace(*f.Conditions) == "" {
		f.Conditions = nil
	}
	if err := validate.Struct(&f); err != nil {
		return File{}, domain.ConfigError{Property: f.PropertyName, Reason: path + ", " + describeValidation(err)}
	}
	if f.DataFile != "" {
		if !strings.EqualFold(filepath.Ext(f.DataFile), ".csv") {
			return File{}, domain.ConfigError{Property: f.PropertyName, Reason: "data file is not a CSV file"}
		}
		if f.DataFile, err = resolve(path, f.DataFile); err != nil {
			return File{}, domain.ConfigError{Property: f.PropertyName, Reason: "data file does not exist", Err: err}
		}
	}
	if f.Conditions != nil {
		c, err := resolve(path, *f.Conditions)
		if err != nil {
			return File{}, domain.ConfigError{Property: f.PropertyName, Reason: "conditions file does not exist", Err: err}
		}
		f.Conditions = &c
	}
	return f, nil
}

// LoadYAMLs loads every file and rejects two files describing one property.
func LoadYAMLs(paths []string) ([]File, error) {
	files := make([]File, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		f, err := LoadYAML(p)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[f.PropertyName]; dup {
			return nil, domain.ConfigError{
				Property: f.PropertyName,
				Reason:   fmt.Sprintf("multiple YAMLs are defined for the same property (%s, %s)", prev, p),
			}
		}
		seen[f.PropertyName] = p
		files = append(files, f)
	}
	return files, nil
}

func resolve(yamlPath, ref string) (string, error) {
	candidates := []string{ref}
	if !filepath.IsAbs(ref) {
		candidates = append(candidates, filepath.Join(filepath.Dir(yamlPath), ref))
	}
	for _, c := range candidates {
		info, err := os.Stat(c)
		if err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%s: %w", ref, fs.ErrNotExist)
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := yamlName(fe.StructField())
		switch fe.Tag() {
		case "required", "required_if", "required_unless":
			msgs = append(msgs, "no "+field+" defined")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("invalid %s %q", field, fe.Value()))
		case "endswith":
			msgs = append(msgs, field+" is not a CSV file")
		default:
			msgs = append(msgs, fmt.Sprintf("%s fails %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func yamlName(structField string) string {
	switch structField {
	case "PropertyName":
		return "property_name"
	case "DataType":
		return "data_type"
	case "DataFile":
		return "data_file"
	case "Conditions":
		return "conditions"
	case "PDF":
		return "pdf"
	case "PDFParameters":
		return "pdf_parameters"
	default:
		return structField
	}
}

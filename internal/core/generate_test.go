package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"simago/pkg/domain"
)

func writeFixture(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

func exampleYAMLFolder(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFixture(t, dir, map[string]string{
		"data/sex.csv":               "option,value,label,conditional_index\n0,3805370719,male,0\n1,3742018211,female,0\n",
		"data/age.csv":               "option,value,label,conditional_index\n0,20,young,0\n1,80,adult,0\n0,25,young,1\n1,75,adult,1\n",
		"data/age_conditions.csv":    "conditional_index,property_name,option,relation\n0,sex,0,eq\n1,sex,1,eq\n",
		"data/income_conditions.csv": "conditional_index,property_name,option,relation\n0,age,0,eq\n1,age,1,geq\n",
		"yaml/age.yml":               "property_name: age\ndata_type: ordinal\ndata_file: ../data/age.csv\nconditions: ../data/age_conditions.csv\n",
		"yaml/income.yml":            "property_name: income\ndata_type: continuous\nconditions: ../data/income_conditions.csv\npdf: lognormal\npdf_parameters:\n  - [2000, 0.4]\n  - [34000, 0.5]\n",
		"yaml/sex.yml":               "property_name: sex\ndata_type: categorical\ndata_file: ../data/sex.csv\nconditions: null\n",
	})
	return filepath.Join(dir, "yaml")
}

func TestGenerateRegistersInDependencyOrder(t *testing.T) {
	logger := &captureLogger{}
	p, err := Generate(context.Background(), GenerateConfig{
		PopSize:    25,
		Seed:       int64Ptr(100),
		YAMLFolder: exampleYAMLFolder(t),
		Options:    []Option{WithLogger(logger)},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got := p.Properties(); !slices.Equal(got, []string{"sex", "age", "income"}) {
		t.Fatalf("unexpected order %v", got)
	}
	if len(p.Table().Properties()) != 0 {
		t.Fatalf("generate must not draw values")
	}
	if !logger.has("info", "population generated") {
		t.Fatalf("expected generation log")
	}
	if _, err := p.Update(context.Background(), All); err != nil {
		t.Fatalf("update: %v", err)
	}
	if tbl := p.ExportTable(); tbl.Rows[0][2] != "young" && tbl.Rows[0][2] != "adult" {
		t.Fatalf("unexpected age label %q", tbl.Rows[0][2])
	}
}

func TestGenerateErrors(t *testing.T) {
	ctx := context.Background()

	missingRef := t.TempDir()
	writeFixture(t, missingRef, map[string]string{
		"age.csv":            "option,value,label,conditional_index\n0,1,young,0\n",
		"age_conditions.csv": "conditional_index,property_name,option,relation\n0,sex,0,eq\n",
		"root.csv":           "option,value,label,conditional_index\n0,1,x,0\n",
		"age.yml":            "property_name: age\ndata_type: ordinal\ndata_file: age.csv\nconditions: age_conditions.csv\n",
		"root.yml":           "property_name: root\ndata_type: categorical\ndata_file: root.csv\n",
	})
	if _, err := Generate(ctx, GenerateConfig{PopSize: 5, YAMLFolder: missingRef}); !errors.Is(err, domain.ErrDependency) {
		t.Fatalf("expected DependencyError, got %v", err)
	}

	if _, err := Generate(ctx, GenerateConfig{PopSize: 0, YAMLFolder: exampleYAMLFolder(t)}); !errors.Is(err, domain.ErrSize) {
		t.Fatalf("expected SizeError, got %v", err)
	}

	if _, err := Generate(ctx, GenerateConfig{PopSize: 5, YAMLFolder: t.TempDir()}); !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ConfigError for empty folder, got %v", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := Generate(cancelled, GenerateConfig{PopSize: 5, YAMLFolder: exampleYAMLFolder(t)}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

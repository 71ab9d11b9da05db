package storage

import (
	"fmt"
	"path"
	"regexp"
)

const datasetsRoot = "datasets"

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// DatasetPrefix is the key prefix holding every object of one published dataset.
func DatasetPrefix(dataset string) (string, error) {
	if err := validatePathComponent(dataset, "dataset name"); err != nil {
		return "", err
	}
	return path.Join(datasetsRoot, dataset) + "/", nil
}

func DatasetTablePath(dataset, tableName string) (string, error) {
	prefix, err := DatasetPrefix(dataset)
	if err != nil {
		return "", err
	}
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	return prefix + tableName + ".parquet", nil
}

func DatasetManifestPath(dataset string) (string, error) {
	prefix, err := DatasetPrefix(dataset)
	if err != nil {
		return "", err
	}
	return prefix + "manifest.json", nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}

package storage

import (
	"fmt"
	"path"
	"regexp"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,127}$`)

// DatasetPrefix is the directory holding every parquet part of a table.
func DatasetPrefix(tableName string) (string, error) {
	if err := ValidateTableName(tableName); err != nil {
		return "", err
	}
	return tableName + "/", nil
}

func BuildDatasetFilePath(tableName string, sequence int) (string, error) {
	if err := ValidateTableName(tableName); err != nil {
		return "", err
	}
	if sequence < 0 {
		return "", fmt.Errorf("sequence must be >= 0")
	}
	return path.Join(tableName, fmt.Sprintf("part-%05d.parquet", sequence)), nil
}

func IsParquetKey(key string) bool {
	return path.Ext(key) == ".parquet"
}

func ValidateTableName(value string) error {
	if !tableNamePattern.MatchString(value) {
		return fmt.Errorf("invalid table name: %q", value)
	}
	return nil
}

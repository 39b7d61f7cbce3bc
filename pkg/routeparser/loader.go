package routeparser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lintang/timemap/pkg/datastructure"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// LoadRouteFile baca route record dari file .json / .yaml / .yml.
// Hanya record yang type nya diawali "Route" yang dipakai.
func LoadRouteFile(path string) ([]datastructure.RouteRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route file %s: %w", path, err)
	}

	var records []datastructure.RouteRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &records)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &records)
	default:
		return nil, fmt.Errorf("unsupported route file extension: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode route file %s: %w", path, err)
	}

	return lo.Filter(records, func(rec datastructure.RouteRecord, _ int) bool {
		return strings.HasPrefix(rec.Type, "Route")
	}), nil
}

func LoadRouteFiles(paths []string) ([]datastructure.RouteRecord, error) {
	all := make([]datastructure.RouteRecord, 0)
	for _, path := range paths {
		records, err := LoadRouteFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

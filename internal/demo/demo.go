// Package demo ships a few location data sets that can be loaded into an
// empty planner to show the routing in action.
package demo

import (
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"liveroute/internal/model"
)

//go:embed data/*.yaml
var files embed.FS

type Dataset struct {
	Name      string                `yaml:"name" json:"name"`
	Locations []model.LocationInput `yaml:"locations" json:"locations"`
}

var ErrUnknownDataset = errors.New("unknown demo dataset")

var datasets = mustLoad()

func mustLoad() map[string]Dataset {
	out, err := load()
	if err != nil {
		panic(err)
	}
	return out
}

func load() (map[string]Dataset, error) {
	entries, err := files.ReadDir("data")
	if err != nil {
		return nil, err
	}
	out := map[string]Dataset{}
	for _, e := range entries {
		b, err := files.ReadFile(path.Join("data", e.Name()))
		if err != nil {
			return nil, err
		}
		var ds Dataset
		if err := yaml.Unmarshal(b, &ds); err != nil {
			return nil, fmt.Errorf("demo %s: %w", e.Name(), err)
		}
		if ds.Name == "" {
			ds.Name = strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		}
		out[ds.Name] = ds
	}
	return out, nil
}

// Names lists the available data sets, sorted.
func Names() []string {
	names := make([]string, 0, len(datasets))
	for n := range datasets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func Get(name string) (Dataset, error) {
	ds, ok := datasets[name]
	if !ok {
		return Dataset{}, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	ds.Locations = append([]model.LocationInput(nil), ds.Locations...)
	return ds, nil
}

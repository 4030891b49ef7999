// Package sites contains the registry of field sites harvested from the
// weather API, loaded from YAML or JSON config.
package sites

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Site is one configured harvesting target.
type Site struct {
	ID        string  `json:"id" yaml:"id"`
	Name      string  `json:"name" yaml:"name"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	// Location, when set, is sent to the API verbatim instead of the
	// coordinate pair and may carry several comma-separated coordinates.
	Location       string   `json:"location" yaml:"location"`
	UnitCode       string   `json:"unitcode" yaml:"unitcode"`
	Metrics        []string `json:"metrics" yaml:"metrics"`
	LookbackHours  int      `json:"lookback_hours" yaml:"lookback_hours"`
	RequestDelayMs int      `json:"request_delay_ms" yaml:"request_delay_ms"`
}

type registryFile struct {
	Sites []Site `json:"sites" yaml:"sites"`
}

var (
	defaultMetrics        = []string{"air_temp"}
	defaultLookbackHours  = 24
	defaultRequestDelayMs = 500
)

// Registry holds the loaded sites, indexed by id.
type Registry struct {
	mu    sync.RWMutex
	sites []Site
	idx   map[string]Site
}

// LoadRegistry loads the sites registry from file.
func LoadRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sites file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sites file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sites file: %w", err)
	}

	reg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	if len(reg.Sites) == 0 {
		return nil, errors.New("sites file contains no sites entries")
	}

	idx := make(map[string]Site, len(reg.Sites))
	for i := range reg.Sites {
		s := sanitizeSite(reg.Sites[i])
		if err := validateSite(s); err != nil {
			return nil, fmt.Errorf("site[%d]: %w", i, err)
		}
		if _, exists := idx[s.ID]; exists {
			return nil, fmt.Errorf("duplicate site id %q", s.ID)
		}
		reg.Sites[i] = s
		idx[s.ID] = s
	}

	return &Registry{sites: reg.Sites, idx: idx}, nil
}

// All returns a copy of the loaded sites.
func (r *Registry) All() []Site {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.sites) == 0 {
		return nil
	}

	out := make([]Site, len(r.sites))
	copy(out, r.sites)
	return out
}

// ByID returns the site entry for the given id, if loaded.
func (r *Registry) ByID(id string) (Site, bool) {
	id = strings.TrimSpace(id)
	if r == nil || id == "" {
		return Site{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.idx[id]
	return s, ok
}

// Size returns the number of loaded sites.
func (r *Registry) Size() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sites)
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if reg, err := unmarshalRegistry(d.name, data, d.fn); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("sites file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (registryFile, error) {
	var reg registryFile
	if err := fn(data, &reg); err != nil {
		return registryFile{}, fmt.Errorf("decode %s sites: %w", name, err)
	}
	return reg, nil
}

func sanitizeSite(s Site) Site {
	s.ID = strings.TrimSpace(s.ID)
	s.Name = strings.TrimSpace(s.Name)
	s.Location = strings.TrimSpace(s.Location)
	s.UnitCode = strings.TrimSpace(s.UnitCode)

	metrics := make([]string, 0, len(s.Metrics))
	for _, m := range s.Metrics {
		if m = strings.TrimSpace(m); m != "" {
			metrics = append(metrics, m)
		}
	}
	if len(metrics) == 0 {
		metrics = append(metrics, defaultMetrics...)
	}
	s.Metrics = metrics

	if s.LookbackHours <= 0 {
		s.LookbackHours = defaultLookbackHours
	}
	if s.RequestDelayMs <= 0 {
		s.RequestDelayMs = defaultRequestDelayMs
	}

	return s
}

func validateSite(s Site) error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.Name == "" {
		return fmt.Errorf("name is required for site %q", s.ID)
	}
	if s.Location == "" && s.Latitude == 0 && s.Longitude == 0 {
		return fmt.Errorf("location or coordinates are required for site %q", s.ID)
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		return fmt.Errorf("latitude out of range for site %q", s.ID)
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return fmt.Errorf("longitude out of range for site %q", s.ID)
	}
	return nil
}

// Lookback returns how far back each harvest window reaches.
func (s Site) Lookback() time.Duration {
	if s.LookbackHours <= 0 {
		return time.Duration(defaultLookbackHours) * time.Hour
	}
	return time.Duration(s.LookbackHours) * time.Hour
}

// RequestDelay returns the per-request throttle duration for the site.
func (s Site) RequestDelay() time.Duration {
	if s.RequestDelayMs <= 0 {
		return time.Duration(defaultRequestDelayMs) * time.Millisecond
	}
	return time.Duration(s.RequestDelayMs) * time.Millisecond
}

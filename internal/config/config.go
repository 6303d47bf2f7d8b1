// Package config loads optional YAML defaults for the scanner CLI.
// Flags given on the command line always win over file values.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File mirrors the supported keys of the scanner config file.
type File struct {
	FQDN           string `yaml:"fqdn"`
	RepoNamespace  string `yaml:"repo_namespace"`
	CnfPrefix      string `yaml:"cnf_prefix"`
	Filter         string `yaml:"filter"`
	TagType        string `yaml:"tag_type"`
	AuthJSON       string `yaml:"auth_json"`
	ImageFile      string `yaml:"image_file"`
	Parallel       int    `yaml:"parallel"`
	TimeoutMinutes int    `yaml:"timeout_minutes"`
	OutputCSV      string `yaml:"output_csv"`
	OutputXLSX     string `yaml:"output_xlsx"`
	OutputHTML     string `yaml:"output_html"`
	DBDriver       string `yaml:"db_driver"`
	DBDSN          string `yaml:"db_dsn"`
	MetricsAddr    string `yaml:"metrics_addr"`
}

// Load reads and parses a config file. Unknown keys are rejected so
// typos surface early.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return &f, nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Site is the optional arbor.yaml file. Empty fields leave the defaults.
type Site struct {
	BasePath    string `yaml:"basePath"`
	SiteDomain  string `yaml:"siteDomain"`
	ContentPath string `yaml:"contentPath"`
	OutputPath  string `yaml:"outputPath"`
	PublicPath  string `yaml:"publicPath"`
	CodeStyle   string `yaml:"codeStyle"`
	ListenAddr  string `yaml:"listenAddr"`
}

// LoadSiteFile returns an empty Site when name does not exist.
func LoadSiteFile(name string) (Site, error) {
	var site Site
	if name == "" {
		return site, nil
	}
	data, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return site, nil
	}
	if err != nil {
		return site, err
	}
	if err := yaml.Unmarshal(data, &site); err != nil {
		return Site{}, fmt.Errorf("parse %s: %w", name, err)
	}
	return site, nil
}

func (s Site) apply(cfg *Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.BasePath, s.BasePath)
	set(&cfg.SiteDomain, s.SiteDomain)
	set(&cfg.ContentPath, s.ContentPath)
	set(&cfg.OutputPath, s.OutputPath)
	set(&cfg.PublicPath, s.PublicPath)
	set(&cfg.CodeStyle, s.CodeStyle)
	set(&cfg.ListenAddr, s.ListenAddr)
}

package main

import (
	"fmt"
	"os"

	"github.com/ardanlabs/conf"
	"gopkg.in/yaml.v2"
)

type configuration struct {
	Debug    bool   `conf:"default:false"`
	Seed     bool   `conf:"default:true"`
	Sync     bool   `conf:"default:false"`
	Settings string `conf:"default:"`
	DB       struct {
		Filename string `conf:"default:finishline.db"`
	}
}

// settingsFile mirrors the optional YAML settings shipped alongside the
// binary; explicit flags and environment variables keep precedence, the file
// only fills values left at their defaults.
type settingsFile struct {
	Debug      *bool   `yaml:"debug"`
	Seed       *bool   `yaml:"seed"`
	Sync       *bool   `yaml:"sync"`
	DBFilename *string `yaml:"db_filename"`
}

func loadConfiguration() (cfg configuration, err error) {
	if err = conf.Parse(os.Args[1:], "DBCHECK", &cfg); err != nil {
		if err == conf.ErrHelpWanted {
			usage, usageErr := conf.Usage("DBCHECK", &cfg)
			if usageErr != nil {
				return cfg, fmt.Errorf("generating config usage: %w", usageErr)
			}
			fmt.Println(usage)
			return cfg, conf.ErrHelpWanted
		}
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Settings == "" {
		return cfg, nil
	}

	contents, err := os.ReadFile(cfg.Settings)
	if err != nil {
		return cfg, fmt.Errorf("reading settings file %q: %w", cfg.Settings, err)
	}

	var settings settingsFile
	if err = yaml.Unmarshal(contents, &settings); err != nil {
		return cfg, fmt.Errorf("parsing settings file %q: %w", cfg.Settings, err)
	}

	if settings.Debug != nil {
		cfg.Debug = *settings.Debug
	}
	if settings.Seed != nil {
		cfg.Seed = *settings.Seed
	}
	if settings.Sync != nil {
		cfg.Sync = *settings.Sync
	}
	if settings.DBFilename != nil {
		cfg.DB.Filename = *settings.DBFilename
	}
	return cfg, nil
}

package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "MONEYBOARD_"

type Application struct {
	Host     string   `koanf:"host"`
	Backend  Backend  `koanf:"backend"`
	Picker   Picker   `koanf:"picker"`
	Forms    Forms    `koanf:"forms"`
	Cache    Cache    `koanf:"cache"`
	Database Database `koanf:"db"`
}

// Backend points at the finance REST API every session talks to.
type Backend struct {
	BaseURL string        `koanf:"baseurl"`
	Timeout time.Duration `koanf:"timeout"`
}

type Picker struct {
	Debounce time.Duration `koanf:"debounce"`
}

// Forms bounds how long an untouched transaction draft is kept.
type Forms struct {
	TTL   time.Duration `koanf:"ttl"`
	Sweep time.Duration `koanf:"sweep"`
}

// Cache controls whether entity caches survive a restart.
type Cache struct {
	Persist bool `koanf:"persist"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

func Defaults() Application {
	return Application{
		Host: ":8181",
		Backend: Backend{
			BaseURL: "http://localhost:8000/api/v1",
			Timeout: 10 * time.Second,
		},
		Picker: Picker{
			Debounce: 500 * time.Millisecond,
		},
		Forms: Forms{
			TTL:   24 * time.Hour,
			Sweep: 10 * time.Minute,
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "moneyboard",
			Pass:   "",
			Name:   "moneyboard",
			Schema: "moneyboard",
		},
	}
}

// Load layers defaults, the optional YAML file at path and MONEYBOARD_* environment variables.
func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}

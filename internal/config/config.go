package config

import (
	"errors"
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

const envPrefix = "EVENTMATE_"

var ErrMissingJwtSecret = errors.New("auth.jwtsecret must be set")

type Application struct {
	Server   Server   `koanf:"server"`
	Frontend Frontend `koanf:"frontend"`
	Database Database `koanf:"db"`
	Auth     Auth     `koanf:"auth"`
	Redis    Redis    `koanf:"redis"`
}

type Server struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"readtimeout"`
	WriteTimeout    time.Duration `koanf:"writetimeout"`
	IdleTimeout     time.Duration `koanf:"idletimeout"`
	ShutdownTimeout time.Duration `koanf:"shutdowntimeout"`
}

type Frontend struct {
	// Origin allowed to call the API with credentials (cookies).
	Origin string `koanf:"origin"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

type Auth struct {
	JwtSecret    string        `koanf:"jwtsecret"`
	TokenTTL     time.Duration `koanf:"tokenttl"`
	CookieName   string        `koanf:"cookiename"`
	SecureCookie bool          `koanf:"securecookie"`
}

type Redis struct {
	Enabled  bool          `koanf:"enabled"`
	Addr     string        `koanf:"addr"`
	Pass     string        `koanf:"pass"`
	DB       int           `koanf:"db"`
	EventTTL time.Duration `koanf:"eventttl"`
}

func Defaults() Application {
	return Application{
		Server: Server{
			Addr:            ":5000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Frontend: Frontend{
			Origin: "http://localhost:3000",
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "eventmate",
			Pass:   "",
			Name:   "eventmate",
			Schema: "eventmate",
		},
		Auth: Auth{
			TokenTTL:     7 * 24 * time.Hour,
			CookieName:   "jwt",
			SecureCookie: false,
		},
		Redis: Redis{
			Enabled:  false,
			Addr:     "localhost:6379",
			DB:       0,
			EventTTL: 5 * time.Minute,
		},
	}
}

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
			// EVENTMATE_AUTH_JWTSECRET -> auth.jwtsecret
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
	if app.Auth.JwtSecret == "" {
		return Application{}, ErrMissingJwtSecret
	}

	return app, nil
}

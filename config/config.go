// Package config reads settings from the environment and sets up
// logging.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/t7a/custody/db"
)

// Config holds the environment settings shared by custody and
// custodyd.
type Config struct {
	Dir    string `env:"DBDIR"`
	Depth  int    `env:"CUSTODY_DEPTH" envDefault:"2"`
	Algo   string `env:"CUSTODY_ALGO" envDefault:"sha256"`
	Socket string `env:"CUSTODY_SOCKET" envDefault:"custody.sock"`
	Debug  bool   `env:"DEBUG"`
}

// Load parses the environment.  An unset DBDIR means the current
// directory.
func Load() (cfg Config, err error) {
	err = env.Parse(&cfg)
	if err != nil {
		return cfg, errors.Wrapf(err, "parse env")
	}
	if cfg.Dir == "" {
		cfg.Dir, err = os.Getwd()
		if err != nil {
			return cfg, errors.Wrapf(err, "can't get current directory")
		}
	}
	if cfg.Depth < 1 {
		return cfg, fmt.Errorf("CUSTODY_DEPTH must be positive, got %d", cfg.Depth)
	}
	return
}

// Db returns the database settings, for db.Db.Create.
func (cfg Config) Db() db.Db {
	return db.Db{Dir: cfg.Dir, Depth: cfg.Depth, Algo: cfg.Algo}
}

// InitLogging sets the logrus level and formatter.  Every entry is
// tagged with its caller and goroutine id.
func InitLogging(debug bool) {
	if debug {
		log.SetLevel(log.DebugLevel)
	}
	log.SetReportCaller(true)
	formatter := &log.TextFormatter{
		CallerPrettyfier: caller(),
		FieldMap: log.FieldMap{
			log.FieldKeyFile: "caller",
		},
	}
	formatter.TimestampFormat = "15:04:05.999999999"
	log.SetFormatter(formatter)
}

// caller returns string presentation of log caller which is formatted as
// `/path/to/file.go:line_number gid N`.
func caller() func(*runtime.Frame) (function string, file string) {
	return func(f *runtime.Frame) (function string, file string) {
		p, _ := os.Getwd()
		return "", fmt.Sprintf("%s:%d gid %d", strings.TrimPrefix(f.File, p), f.Line, db.GetGID())
	}
}

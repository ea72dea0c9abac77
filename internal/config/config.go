// Package config defines stabping's runtime configuration, loaded from
// environment variables with struct-tag defaults, the same convention the
// teacher's atlas server uses for its own Config.
package config

import (
	"fmt"
	"io/fs"
	"net/netip"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/mod/semver"
)

// Config holds every tunable for the stabping process. The env struct tag
// contains the environment variable name and the default value if missing
// (after "="), or, if the key ends in "?", a default that an explicit empty
// value in the environment is allowed to override.
type Config struct {
	// The directory holding each probe kind's on-disk triad
	// (<kind>.index.txt, <kind>.options.json, <kind>.data.dat).
	DataDir string `env:"STABPING_DATA_DIR?=."`

	// The addresses to listen on for the HTTP front-end (comma-separated).
	Addr []string `env:"STABPING_ADDR?=:8080"`

	// The address for a live-broadcast WebSocket transport. cmd/stabping
	// does not read it and starts no WebSocket transport, so
	// Broadcaster.Send always returns ErrSocketNotAvail.
	WSAddr string `env:"STABPING_WS_ADDR"`

	// The minimum log level (e.g., trace, debug, info, warn, error, fatal).
	LogLevel zerolog.Level `env:"STABPING_LOG_LEVEL=info"`

	// Whether to log to stdout.
	LogStdout bool `env:"STABPING_LOG_STDOUT=true"`

	// Whether to use pretty (console) logs on stdout, instead of JSON.
	LogStdoutPretty bool `env:"STABPING_LOG_STDOUT_PRETTY=true"`

	// The minimum log level for stdout.
	LogStdoutLevel zerolog.Level `env:"STABPING_LOG_STDOUT_LEVEL=trace"`

	// The log file to output to, if provided. Reopened on SIGHUP.
	LogFile string `env:"STABPING_LOG_FILE"`

	// The minimum log level for the log file.
	LogFileLevel zerolog.Level `env:"STABPING_LOG_FILE_LEVEL=info"`

	// The permissions for the log file.
	LogFileChmod fs.FileMode `env:"STABPING_LOG_FILE_CHMOD"`

	// Minimum stabping client semver. Validate checks that it is a valid
	// semver; no HTTP handler reads it, so no client version is enforced.
	MinClientVersion string `env:"STABPING_MIN_CLIENT_VERSION"`

	// Optional sqlite3 DSN for the archival sink (internal/probedb). Empty
	// disables archival.
	ArchivalDB string `env:"STABPING_ARCHIVAL_DB"`

	// Optional path to an IP2Location-format database used for the
	// supplemental addr-geohash metric. Empty disables the feature.
	GeoDB string `env:"STABPING_GEO_DB"`

	// For sd-notify.
	NotifySocket string `env:"NOTIFY_SOCKET"`
}

// UnmarshalEnv unmarshals an array of "KEY=VALUE" environment lines into c,
// applying struct-tag defaults for anything missing. If incremental is
// true, defaults are applied only to fields that are present but empty,
// never to fields absent from es entirely (used for SIGHUP reloads that
// should not reset unspecified fields back to their zero default).
func (c *Config) UnmarshalEnv(es []string, incremental bool) error {
	em := map[string]string{}
	for _, e := range es {
		if strings.HasPrefix(e, "STABPING_") || strings.HasPrefix(e, "NOTIFY_SOCKET=") {
			if k, v, ok := strings.Cut(e, "="); ok {
				em[k] = v
			}
		}
	}

	cv := reflect.ValueOf(c).Elem()
	for _, ctf := range reflect.VisibleFields(cv.Type()) {
		env, ok := ctf.Tag.Lookup("env")
		if !ok {
			continue
		}

		var unsettable bool
		key, val, _ := strings.Cut(env, "=")
		if strings.HasSuffix(key, "?") {
			key = strings.TrimSuffix(key, "?")
			unsettable = true
		}

		if v, exists := em[key]; exists {
			if unsettable || v != "" {
				val = v
			}
			delete(em, key)
		} else if incremental {
			continue
		}

		switch cvf := cv.FieldByName(ctf.Name); cvf.Interface().(type) {
		case string:
			cvf.SetString(val)
		case int, int8, int16, int32, int64:
			if val == "" {
				cvf.SetInt(0)
			} else if v, err := strconv.ParseInt(val, 10, 64); err == nil {
				cvf.SetInt(v)
			} else {
				return fmt.Errorf("env %s (%T): parse %q: %w", key, cvf.Interface(), val, err)
			}
		case bool:
			if val == "" {
				cvf.SetBool(false)
			} else if v, err := strconv.ParseBool(val); err == nil {
				cvf.SetBool(v)
			} else {
				return fmt.Errorf("env %s (%T): parse %q: %w", key, cvf.Interface(), val, err)
			}
		case []string:
			if val == "" {
				cvf.Set(reflect.ValueOf([]string{}))
			} else {
				cvf.Set(reflect.ValueOf(strings.Split(val, ",")))
			}
		case zerolog.Level:
			if v, err := zerolog.ParseLevel(val); err == nil {
				cvf.Set(reflect.ValueOf(v))
			} else {
				return fmt.Errorf("env %s (%T): parse %q: %w", key, cvf.Interface(), val, err)
			}
		case time.Duration:
			if v, err := time.ParseDuration(val); err == nil {
				cvf.Set(reflect.ValueOf(v))
			} else {
				return fmt.Errorf("env %s (%T): parse %q: %w", key, cvf.Interface(), val, err)
			}
		case fs.FileMode:
			if val == "" {
				cvf.Set(reflect.ValueOf(fs.FileMode(0)))
			} else if v, err := strconv.ParseUint(val, 8, 32); err == nil {
				cvf.Set(reflect.ValueOf(fs.FileMode(v)))
			} else {
				return fmt.Errorf("env %s (%T): parse %q: %w", key, cvf.Interface(), val, err)
			}
		case netip.AddrPort:
			if val == "" {
				cvf.Set(reflect.ValueOf(netip.AddrPort{}))
			} else if v, err := netip.ParseAddrPort(val); err == nil {
				cvf.Set(reflect.ValueOf(v))
			} else {
				return fmt.Errorf("env %s (%T): parse %q: %w", key, cvf.Interface(), val, err)
			}
		default:
			return fmt.Errorf("unhandled type %T (%s)", cvf.Interface(), env)
		}
	}
	for key, val := range em {
		if val != "" {
			return fmt.Errorf("unknown environment variable %q", key)
		}
	}
	return nil
}

// Validate checks fields whose correctness UnmarshalEnv can't enforce by
// type alone, mirroring the teacher's NewServer semver check for
// API0_MinimumLauncherVersion.
func (c *Config) Validate() error {
	if c.MinClientVersion != "" && !semver.IsValid("v"+strings.TrimPrefix(c.MinClientVersion, "v")) {
		return fmt.Errorf("invalid minimum client version semver %q", c.MinClientVersion)
	}
	return nil
}

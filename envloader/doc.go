// Package envloader loads environment variables into a Go struct using the
// `env` and `envDefault` field tags.
//
// It walks the struct with reflection, supporting string, integer, unsigned,
// bool and float fields plus time.Duration values ("90s", "500ms"),
// comma-separated []string lists, and nested structs (including pointers to
// structs). A variable that is unset falls back to envDefault; a field with
// neither is left at its zero value.
//
//	type Config struct {
//	    Port  int           `env:"PORT" envDefault:"3000"`
//	    Nodes []string      `env:"REDIS_CLUSTER_NODES"`
//	    Wait  time.Duration `env:"REDIS_DISCOVERY_TIMEOUT" envDefault:"90s"`
//	}
//
//	var cfg Config
//	if err := envloader.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Conversion failures are reported as typed errors (InvalidConfigError,
// FieldError, UnsupportedTypeError) so callers can log the offending variable.
package envloader

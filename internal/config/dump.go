package config

import (
	"fmt"
	"io"
	"reflect"

	"gopkg.in/yaml.v3"
)

const redacted = "********"

var secretKeys = map[string]bool{
	"JWT_SECRET":         true,
	"DB_PASSWORD":        true,
	"NEIS_API_KEY":       true,
	"MINIO_ACCESS_KEY":   true,
	"MINIO_SECRET_KEY":   true,
	"DEV_ADMIN_PASSWORD": true,
}

// Settings returns the effective configuration keyed by environment variable
// name. Secrets are masked when set.
func (c *Config) Settings() map[string]any {
	out := make(map[string]any)
	v := reflect.ValueOf(c).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		val := v.Field(i).Interface()
		if secretKeys[key] && !v.Field(i).IsZero() {
			val = redacted
		}
		out[key] = val
	}
	return out
}

// WriteYAML writes Settings to w as a YAML document.
func (c *Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c.Settings()); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

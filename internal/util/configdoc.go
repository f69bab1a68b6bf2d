// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"reflect"
	"strings"
	"time"
)

// ConfigField documents one config.yaml key, taken from struct tags.
type ConfigField struct {
	Key         string
	Type        string
	Default     string
	Description string
}

// EnvVar documents an environment variable clive reads.
type EnvVar struct {
	Name        string
	Description string
}

// ConfigReference lists every config.yaml key. Nested blocks appear as an
// object row followed by their dotted keys.
func ConfigReference() []ConfigField {
	return appendFields(nil, reflect.TypeOf(Config{}), "")
}

// EnvironmentReference lists the environment variables clive reads.
func EnvironmentReference() []EnvVar {
	return []EnvVar{
		{"CLIVE_DATA", "Data directory when -d is not given (default ~/.clive)"},
		{"CLIVE_DEBUG", "Set to any value to enable debug logging"},
	}
}

var durationType = reflect.TypeOf(time.Duration(0))

func appendFields(out []ConfigField, t reflect.Type, prefix string) []ConfigField {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := strings.Split(field.Tag.Get("yaml"), ",")[0]
		if name == "" || name == "-" {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		desc := field.Tag.Get("description")
		if desc == "" {
			desc = "(no description)"
		}

		inner := field.Type
		if inner.Kind() == reflect.Ptr {
			inner = inner.Elem()
		}
		if inner.Kind() == reflect.Struct && inner != durationType {
			out = append(out, ConfigField{Key: name, Type: "object", Default: "(none)", Description: desc})
			out = appendFields(out, inner, name)
			continue
		}

		def := field.Tag.Get("default")
		if def == "" {
			def = "(none)"
		}
		out = append(out, ConfigField{Key: name, Type: formatType(field.Type), Default: def, Description: desc})
	}
	return out
}

func formatType(t reflect.Type) string {
	if t == durationType {
		return "duration"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "int"
	case reflect.Bool:
		return "bool"
	case reflect.Slice:
		return "[]" + formatType(t.Elem())
	case reflect.Map:
		return "map[" + formatType(t.Key()) + "]" + formatType(t.Elem())
	case reflect.Ptr:
		return formatType(t.Elem())
	default:
		return t.String()
	}
}

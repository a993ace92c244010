package handler

import (
	"reflect"
	"strings"
)

// sanitize trims whitespace from every settable string field of a request
// struct. Scope parts and identities arrive from browsers and pasted curl
// commands; stray whitespace must not change the resolution key.
func sanitize(v any) {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return
	}
	sanitizeStruct(val.Elem())
}

func sanitizeStruct(val reflect.Value) {
	if val.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		if !field.CanSet() {
			continue
		}
		switch field.Kind() {
		case reflect.String:
			field.SetString(strings.TrimSpace(field.String()))
		case reflect.Struct:
			sanitizeStruct(field)
		}
	}
}

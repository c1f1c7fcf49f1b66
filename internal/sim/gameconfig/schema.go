package gameconfig

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	schemaOnce sync.Once
	schemas    map[string]*jsonschema.Schema
	schemaErr  error
)

func compileSchemas() {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		schemaErr = err
		return
	}
	c := jsonschema.NewCompiler()
	urls := map[string]string{}
	for _, e := range entries {
		raw, err := schemaFS.ReadFile("schemas/" + e.Name())
		if err != nil {
			schemaErr = err
			return
		}
		url := "mem://schemas/" + e.Name()
		if err := c.AddResource(url, bytes.NewReader(raw)); err != nil {
			schemaErr = fmt.Errorf("%s: %w", e.Name(), err)
			return
		}
		urls[strings.TrimSuffix(e.Name(), ".schema.json")+".json"] = url
	}
	schemas = map[string]*jsonschema.Schema{}
	for name, url := range urls {
		s, err := c.Compile(url)
		if err != nil {
			schemaErr = fmt.Errorf("%s: %w", url, err)
			return
		}
		schemas[name] = s
	}
}

// validateSchema checks raw against the schema registered for file name.
// Files without a schema pass.
func validateSchema(name string, raw []byte) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	s, ok := schemas[name]
	if !ok {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

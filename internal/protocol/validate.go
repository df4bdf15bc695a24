package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBaseURL = "https://voxelsniper.dev/schemas/"

var (
	schemasOnce sync.Once
	schemasErr  error
	helloSchema *jsonschema.Schema
	actSchema   *jsonschema.Schema
)

func compileSchemas() {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	for _, name := range []string{"hello.schema.json", "act.schema.json"} {
		b, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			schemasErr = err
			return
		}
		if err := c.AddResource(schemaBaseURL+name, bytes.NewReader(b)); err != nil {
			schemasErr = fmt.Errorf("%s: %w", name, err)
			return
		}
	}
	if helloSchema, schemasErr = c.Compile(schemaBaseURL + "hello.schema.json"); schemasErr != nil {
		return
	}
	actSchema, schemasErr = c.Compile(schemaBaseURL + "act.schema.json")
}

func validate(s func() *jsonschema.Schema, raw []byte) error {
	schemasOnce.Do(compileSchemas)
	if schemasErr != nil {
		return fmt.Errorf("compile schemas: %w", schemasErr)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return s().Validate(v)
}

// ValidateHello checks a raw HELLO message against its schema.
func ValidateHello(raw []byte) error {
	return validate(func() *jsonschema.Schema { return helloSchema }, raw)
}

// ValidateAct checks a raw ACT message against its schema.
func ValidateAct(raw []byte) error {
	return validate(func() *jsonschema.Schema { return actSchema }, raw)
}

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// maxBodyBytes bounds account request bodies.
const maxBodyBytes = 64 << 10

const registerSchema = `{
  "type": "object",
  "required": ["email", "password"],
  "properties": {
    "email": {"type": "string", "format": "email", "maxLength": 256},
    "password": {"type": "string", "minLength": 1, "maxLength": 1024}
  },
  "additionalProperties": false
}`

const loginSchema = `{
  "type": "object",
  "required": ["email", "password"],
  "properties": {
    "email": {"type": "string", "minLength": 1, "maxLength": 256},
    "password": {"type": "string", "minLength": 1, "maxLength": 1024}
  },
  "additionalProperties": false
}`

// requestValidator checks JSON bodies against the account schemas before
// they are decoded.
type requestValidator struct {
	register *jsonschema.Schema
	login    *jsonschema.Schema
	printer  *message.Printer
}

func newRequestValidator() (*requestValidator, error) {
	register, err := compileSchema("register.json", registerSchema)
	if err != nil {
		return nil, err
	}
	login, err := compileSchema("login.json", loginSchema)
	if err != nil {
		return nil, err
	}
	return &requestValidator{
		register: register,
		login:    login,
		printer:  message.NewPrinter(language.English),
	}, nil
}

func compileSchema(url, schemaJSON string) (*jsonschema.Schema, error) {
	parsed, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", url, err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft7)
	compiler.AssertFormat()
	if err := compiler.AddResource(url, parsed); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", url, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", url, err)
	}
	return schema, nil
}

// decode reads body, validates it against schema and unmarshals it into dst.
// Validation problems are returned as messages for the client; err is set
// only when the body could not be read.
func (v *requestValidator) decode(body io.Reader, schema *jsonschema.Schema, dst any) ([]string, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(raw) > maxBodyBytes {
		return []string{"Request body is too large."}, nil
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return []string{"Request body must be a JSON object."}, nil
	}
	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return v.problems(ve), nil
		}
		return []string{err.Error()}, nil
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return []string{"Request body must be a JSON object."}, nil
	}
	return nil, nil
}

// problems flattens a validation error into one message per failed leaf.
func (v *requestValidator) problems(ve *jsonschema.ValidationError) []string {
	var out []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			path := "$"
			if len(e.InstanceLocation) > 0 {
				path = "$." + strings.Join(e.InstanceLocation, ".")
			}
			out = append(out, fmt.Sprintf("%s: %s", path, e.ErrorKind.LocalizedString(v.printer)))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(out)
	return out
}

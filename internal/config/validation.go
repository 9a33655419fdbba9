package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"pinyind/internal/engine"
	"pinyind/internal/keys"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "schema.json"

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile(schemaURL)
})

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Is makes errors.Is(err, ErrInvalid) hold for any validation failure.
func (e ValidationErrors) Is(target error) bool { return target == ErrInvalid }

// ValidateConfig checks c against the embedded JSON schema and then runs
// the checks a schema cannot express.
func ValidateConfig(c *Config) error {
	errs := validateSchema(c)
	errs = append(errs, validateToggle(&c.Toggle)...)
	errs = append(errs, validateEngine(&c.Engine)...)
	errs = append(errs, validateKeyboard(&c.Keyboard)...)
	errs = append(errs, validateLogging(&c.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateSchema(c *Config) ValidationErrors {
	schema, err := compileSchema()
	if err != nil {
		return ValidationErrors{{Field: "schema", Message: err.Error()}}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return ValidationErrors{{Field: "schema", Message: err.Error()}}
	}
	var instance any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&instance); err != nil {
		return ValidationErrors{{Field: "schema", Message: err.Error()}}
	}

	err = schema.Validate(instance)
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		if err != nil {
			return ValidationErrors{{Field: "schema", Message: err.Error()}}
		}
		return nil
	}
	var errs ValidationErrors
	collectSchemaErrors(verr, &errs)
	return errs
}

// collectSchemaErrors flattens the leaves of a schema error tree.
func collectSchemaErrors(verr *jsonschema.ValidationError, errs *ValidationErrors) {
	if len(verr.Causes) == 0 {
		field := strings.ReplaceAll(strings.TrimPrefix(verr.InstanceLocation, "/"), "/", ".")
		if field == "" {
			field = "(root)"
		}
		*errs = append(*errs, ValidationError{Field: field, Message: verr.Message})
		return
	}
	for _, cause := range verr.Causes {
		collectSchemaErrors(cause, errs)
	}
}

func validateToggle(t *ToggleConfig) ValidationErrors {
	var errs ValidationErrors
	if t.Key != "" {
		if _, ok := keys.Lookup(t.Key); !ok {
			errs = append(errs, ValidationError{
				Field:   "toggle.key",
				Message: fmt.Sprintf("unknown key name %q", t.Key),
			})
		}
	}
	return errs
}

func validateEngine(e *EngineConfig) ValidationErrors {
	var errs ValidationErrors
	if _, err := engine.ParseStyle(e.Style); err != nil {
		errs = append(errs, ValidationError{Field: "engine.style", Message: err.Error()})
	}
	if e.Dictionary == "" && e.SourcePath == "" {
		errs = append(errs, ValidationError{
			Field:   "engine.dictionary",
			Message: "a dictionary or a source path is required",
		})
	}
	if e.WatchSource && e.SourcePath == "" {
		errs = append(errs, ValidationError{
			Field:   "engine.watch_source",
			Message: "watching requires engine.source_path",
		})
	}
	return errs
}

func validateKeyboard(k *KeyboardConfig) ValidationErrors {
	var errs ValidationErrors
	if k.KeymapFile != "" {
		if _, err := os.Stat(k.KeymapFile); err != nil {
			errs = append(errs, ValidationError{Field: "keyboard.keymap_file", Message: err.Error()})
		}
	}
	if k.RepeatRate > 0 && k.RepeatDelayMs == 0 {
		errs = append(errs, ValidationError{
			Field:   "keyboard.repeat_delay_ms",
			Message: "a repeat delay is required when repeat_rate is set",
		})
	}
	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors
	if (l.Output == "file" || l.Output == "both") && l.FilePath == "" {
		errs = append(errs, ValidationError{
			Field:   "logging.file_path",
			Message: "file path is required when output includes a file",
		})
	}
	return errs
}

package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

const schemaURL = "https://github.com/panbanda/codeforge/schema/config.json"

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Schema returns the JSON Schema config files are validated against.
func Schema() []byte {
	return schemaJSON
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("parse config schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("load config schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// validateDoc checks any JSON-encodable value against the schema.
func validateDoc(v any) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// validateRaw checks a parsed config file before defaults are merged, so
// unknown keys and wrongly typed values are reported against the file.
func validateRaw(raw map[string]any) error {
	return validateDoc(raw)
}

// Validate checks value ranges and the relationships between settings.
func (c *Config) Validate() error {
	if err := validateDoc(c); err != nil {
		return err
	}

	var errs []error
	if c.Thresholds.CyclomaticMedium >= c.Thresholds.CyclomaticHigh {
		errs = append(errs, fmt.Errorf("thresholds.cyclomatic_medium (%d) must be below cyclomatic_high (%d)",
			c.Thresholds.CyclomaticMedium, c.Thresholds.CyclomaticHigh))
	}
	if c.Heuristics.SecurityHigh > c.Heuristics.SecurityMedium {
		errs = append(errs, fmt.Errorf("heuristics.security_high (%g) must not exceed security_medium (%g)",
			c.Heuristics.SecurityHigh, c.Heuristics.SecurityMedium))
	}
	if c.Heuristics.PerformanceHigh > c.Heuristics.PerformanceMedium {
		errs = append(errs, fmt.Errorf("heuristics.performance_high (%g) must not exceed performance_medium (%g)",
			c.Heuristics.PerformanceHigh, c.Heuristics.PerformanceMedium))
	}
	if c.Gates.CoverageMin > c.Gates.CoverageTarget {
		errs = append(errs, fmt.Errorf("gates.coverage_min (%g) must not exceed coverage_target (%g)",
			c.Gates.CoverageMin, c.Gates.CoverageTarget))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

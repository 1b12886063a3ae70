package service

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// Validator handles service definition validation
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator creates a new validator with the given schema file
func NewValidator(schemaPath string) (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	schema, err := compiler.Compile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// ValidateDirectory loads and validates all definition files in a directory
func (v *Validator) ValidateDirectory(dirPath string) []ValidationError {
	defsWithFiles, loadErrors := LoadFromDirectory(dirPath)

	var allErrors []ValidationError
	allErrors = append(allErrors, loadErrors...)

	if len(defsWithFiles) == 0 {
		return allErrors
	}

	for _, defWithFile := range defsWithFiles {
		schemaErrors := v.validateSchema(defWithFile.File, defWithFile.Definition)
		allErrors = append(allErrors, schemaErrors...)
	}

	extraErrors := v.validateExtraRules(defsWithFiles)
	allErrors = append(allErrors, extraErrors...)

	return allErrors
}

// validateSchema validates a single definition against the JSON schema
func (v *Validator) validateSchema(file string, def *Definition) []ValidationError {
	var errors []ValidationError

	// Round-trip through YAML to get plain maps for schema validation
	yamlBytes, err := yaml.Marshal(def)
	if err != nil {
		errors = append(errors, ValidationError{
			File:    file,
			Message: fmt.Sprintf("failed to marshal definition: %v", err),
		})
		return errors
	}

	var jsonData interface{}
	if err := yaml.Unmarshal(yamlBytes, &jsonData); err != nil {
		errors = append(errors, ValidationError{
			File:    file,
			Message: fmt.Sprintf("failed to convert to JSON: %v", err),
		})
		return errors
	}

	if err := v.schema.Validate(jsonData); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			errors = append(errors, extractSchemaErrors(file, validationErr)...)
		} else {
			errors = append(errors, ValidationError{
				File:    file,
				Message: err.Error(),
			})
		}
	}

	return errors
}

// extractSchemaErrors converts JSON schema validation errors to ValidationErrors
func extractSchemaErrors(file string, err *jsonschema.ValidationError) []ValidationError {
	var errors []ValidationError

	path := strings.Join(err.InstanceLocation, ".")
	if path == "" {
		path = "(root)"
	}

	errors = append(errors, ValidationError{
		File:    file,
		Path:    path,
		Message: err.Error(),
	})

	for _, cause := range err.Causes {
		errors = append(errors, extractSchemaErrors(file, cause)...)
	}

	return errors
}

// validateExtraRules applies additional validation rules beyond JSON schema
func (v *Validator) validateExtraRules(defsWithFiles []DefinitionWithFile) []ValidationError {
	var errors []ValidationError

	// Check for duplicate IDs
	idSeen := make(map[string]string)
	for _, defWithFile := range defsWithFiles {
		id := defWithFile.Definition.Metadata.ID
		if prevFile, exists := idSeen[id]; exists {
			errors = append(errors, ValidationError{
				File:    defWithFile.File,
				Path:    "metadata.id",
				Message: fmt.Sprintf("duplicate ID %q (also in %s)", id, filepath.Base(prevFile)),
			})
		} else {
			idSeen[id] = defWithFile.File
		}

		errors = append(errors, validateSpecRules(defWithFile.File, defWithFile.Definition)...)
	}

	return errors
}

// validateSpecRules checks constraints the schema cannot express
func validateSpecRules(file string, def *Definition) []ValidationError {
	var errors []ValidationError
	spec := def.Spec

	if spec.SLO.UptimeTargetPct <= 0 || spec.SLO.UptimeTargetPct >= 100 {
		errors = append(errors, ValidationError{
			File:    file,
			Path:    "spec.slo.uptimeTargetPct",
			Message: fmt.Sprintf("uptime target must be in (0, 100), got %v", spec.SLO.UptimeTargetPct),
		})
	}

	if len(spec.Windows) == 0 {
		errors = append(errors, ValidationError{
			File:    file,
			Path:    "spec.windows",
			Message: "at least one burn window is required",
		})
	}

	windowSeen := make(map[string]bool)
	for i, w := range spec.Windows {
		if _, err := ParseDuration(w.Window); err != nil {
			errors = append(errors, ValidationError{
				File:    file,
				Path:    fmt.Sprintf("spec.windows[%d].window", i),
				Message: fmt.Sprintf("invalid duration: %v", err),
			})
			continue
		}
		if windowSeen[w.Window] {
			errors = append(errors, ValidationError{
				File:    file,
				Path:    fmt.Sprintf("spec.windows[%d].window", i),
				Message: fmt.Sprintf("duplicate window %q", w.Window),
			})
		}
		windowSeen[w.Window] = true

		if w.BurnThreshold <= 0 {
			errors = append(errors, ValidationError{
				File:    file,
				Path:    fmt.Sprintf("spec.windows[%d].burnThreshold", i),
				Message: fmt.Sprintf("burn threshold must be > 0, got %v", w.BurnThreshold),
			})
		}
	}

	for i, action := range spec.ActionPlan {
		errors = append(errors, validatePlanAction(file, i, action)...)
	}

	if spec.Recovery.StableAfterMin > 0 && spec.Recovery.RecoveryTimeoutMin > 0 &&
		spec.Recovery.RecoveryTimeoutMin <= spec.Recovery.StableAfterMin {
		errors = append(errors, ValidationError{
			File: file,
			Path: "spec.recovery.recoveryTimeoutMin",
			Message: fmt.Sprintf("recoveryTimeoutMin (%d) must be > stableAfterMin (%d)",
				spec.Recovery.RecoveryTimeoutMin, spec.Recovery.StableAfterMin),
		})
	}

	return errors
}

// validatePlanAction checks that an action plan entry carries its parameters
func validatePlanAction(file string, i int, action PlanAction) []ValidationError {
	var errors []ValidationError
	path := fmt.Sprintf("spec.actionPlan[%d]", i)

	switch action.Type {
	case ActionFailover:
		if action.Failover == nil || action.Failover.To == "" {
			errors = append(errors, ValidationError{
				File:    file,
				Path:    path + ".failover.to",
				Message: "failover action requires a target",
			})
		}
	case ActionDegrade:
		if action.Degrade == nil || len(action.Degrade.Features) == 0 {
			errors = append(errors, ValidationError{
				File:    file,
				Path:    path + ".degrade.features",
				Message: "degrade action requires at least one feature",
			})
		}
	case ActionGate:
		if action.Gate == nil || action.Gate.MaxRequestsPerSec <= 0 {
			errors = append(errors, ValidationError{
				File:    file,
				Path:    path + ".gate.maxRequestsPerSec",
				Message: "gate action requires a positive rate limit",
			})
		}
	case ActionCircuit:
		if action.Circuit == nil || action.Circuit.Policy == "" {
			errors = append(errors, ValidationError{
				File:    file,
				Path:    path + ".circuit.policy",
				Message: "circuit action requires a policy",
			})
		}
	default:
		errors = append(errors, ValidationError{
			File:    file,
			Path:    path + ".type",
			Message: fmt.Sprintf("unknown action type %q", action.Type),
		})
	}

	return errors
}

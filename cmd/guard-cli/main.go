package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samijaber1/aegis-guard/internal/service"
)

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	validateDir := validateCmd.String("dir", "", "directory containing service definition YAML files")
	validateQuiet := validateCmd.Bool("quiet", false, "suppress the per-service summary")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		validateCmd.Parse(os.Args[2:])
		if *validateDir == "" {
			fmt.Fprintln(os.Stderr, "Error: --dir flag is required")
			validateCmd.Usage()
			os.Exit(1)
		}
		os.Exit(runValidate(*validateDir, *validateQuiet))
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: guard-cli <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  validate --dir <path> [--quiet]    Validate service definition YAML files in a directory")
	fmt.Println()
}

func runValidate(dirPath string, quiet bool) int {
	schemaPath := findSchemaFile()
	if schemaPath == "" {
		fmt.Fprintln(os.Stderr, "Error: could not find schemas/service_v1.json")
		return 1
	}

	validator, err := service.NewValidator(schemaPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize validator: %v\n", err)
		return 1
	}

	if errors := validator.ValidateDirectory(dirPath); len(errors) > 0 {
		printErrors(errors)
		return 1
	}

	defs, loadErrors := service.LoadFromDirectory(dirPath)
	if len(loadErrors) > 0 {
		printErrors(loadErrors)
		return 1
	}

	if !quiet {
		printSummary(defs)
	}
	fmt.Printf("✓ %d service definition(s) valid\n", len(defs))
	return 0
}

// printSummary lists each guarded service with its SLO, burn windows and plan
func printSummary(defs []service.DefinitionWithFile) {
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Definition.Metadata.ID < defs[j].Definition.Metadata.ID
	})

	for _, d := range defs {
		spec := d.Definition.Spec

		windows := make([]string, 0, len(spec.Windows))
		for _, w := range spec.Windows {
			windows = append(windows, w.Window)
		}

		plan := "detection-only"
		if len(spec.ActionPlan) > 0 {
			kinds := make([]string, 0, len(spec.ActionPlan))
			for _, a := range spec.ActionPlan {
				kinds = append(kinds, a.Type)
			}
			plan = "plan=" + strings.Join(kinds, ",")
		}

		fmt.Printf("  %-20s slo=%.2f%% windows=%s %s\n",
			d.Definition.Metadata.ID, spec.SLO.UptimeTargetPct, strings.Join(windows, ","), plan)
	}
}

func printErrors(errors []service.ValidationError) {
	errorsByFile := make(map[string][]service.ValidationError)
	for _, err := range errors {
		errorsByFile[err.File] = append(errorsByFile[err.File], err)
	}

	var files []string
	for file := range errorsByFile {
		files = append(files, file)
	}
	sort.Strings(files)

	fmt.Fprintf(os.Stderr, "✗ Validation failed with %d error(s):\n\n", len(errors))
	for _, file := range files {
		for _, err := range errorsByFile[file] {
			if err.Path != "" {
				fmt.Fprintf(os.Stderr, "%s: %s: %s\n", filepath.Base(err.File), err.Path, err.Message)
			} else {
				fmt.Fprintf(os.Stderr, "%s: %s\n", filepath.Base(err.File), err.Message)
			}
		}
	}
}

// findSchemaFile looks for the schema file in common locations
func findSchemaFile() string {
	candidates := []string{
		"schemas/service_v1.json",
		"../schemas/service_v1.json",
		"../../schemas/service_v1.json",
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

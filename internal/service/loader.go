package service

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadFromDirectory discovers and loads all service definition files from a directory
func LoadFromDirectory(dirPath string) ([]DefinitionWithFile, []ValidationError) {
	var defs []DefinitionWithFile
	var errors []ValidationError

	files, err := discoverYAMLFiles(dirPath)
	if err != nil {
		errors = append(errors, ValidationError{
			File:    dirPath,
			Message: fmt.Sprintf("failed to read directory: %v", err),
		})
		return nil, errors
	}

	for _, file := range files {
		def, err := parseYAMLFile(file)
		if err != nil {
			errors = append(errors, ValidationError{
				File:    file,
				Message: fmt.Sprintf("failed to parse YAML: %v", err),
			})
			continue
		}
		defs = append(defs, DefinitionWithFile{
			Definition: def,
			File:       file,
		})
	}

	return defs, errors
}

// discoverYAMLFiles finds all *.yaml and *.yml files in a directory
func discoverYAMLFiles(dirPath string) ([]string, error) {
	var files []string

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// parseYAMLFile parses a single service definition file
func parseYAMLFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, err
	}

	return &def, nil
}

// cmd/tools/registry-updater/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"comps-workers/internal/common/validation"
	"comps-workers/pkg/registry"
)

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportPath := exportCmd.String("path", "configs/activity-registry.json", "Where to write the built-in registry")

	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	updatePath := updateCmd.String("path", "configs/activity-registry.json", "Path to registry file")
	taskType := updateCmd.String("taskType", "", "Task type to update (e.g., search-sold-listings)")
	field := updateCmd.String("field", "", "Field to update (status, version, timeout, retries, description)")
	value := updateCmd.String("value", "", "New value for the field")

	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	validatePath := validateCmd.String("path", "", "Path to registry file (empty validates the built-in registry)")

	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	checkPath := checkCmd.String("path", "", "Path to registry file (empty uses the built-in registry)")
	checkTask := checkCmd.String("taskType", "", "Task type whose input schema to check against")
	checkVars := checkCmd.String("vars", "", "JSON file with job variables")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		err = registry.Default().Save(*exportPath)
		if err == nil {
			fmt.Printf("Wrote built-in registry to %s\n", *exportPath)
		}

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *taskType == "" || *field == "" || *value == "" {
			fmt.Println("Error: taskType, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		err = updateActivity(*updatePath, *taskType, *field, *value)
		if err == nil {
			fmt.Printf("Updated %s: %s = %s\n", *taskType, *field, *value)
		}

	case "validate":
		validateCmd.Parse(os.Args[2:])
		var count int
		count, err = validateRegistry(*validatePath)
		if err == nil {
			fmt.Printf("Registry validation passed. Found %d activities.\n", count)
		}

	case "check":
		checkCmd.Parse(os.Args[2:])
		if *checkTask == "" || *checkVars == "" {
			fmt.Println("Error: taskType and vars are required for check.")
			checkCmd.Usage()
			os.Exit(1)
		}
		var result *validation.ValidationResult
		result, err = checkVariables(*checkPath, *checkTask, *checkVars)
		if err == nil {
			if result.Valid {
				fmt.Println("Variables are valid.")
			} else {
				for _, msg := range result.GetErrorMessages() {
					fmt.Println("  -", msg)
				}
				os.Exit(2)
			}
		}

	default:
		help()
		return
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func updateActivity(path, taskType, field, value string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	activity, err := reg.Find(taskType)
	if err != nil {
		return err
	}
	if err := applyUpdate(activity, field, value); err != nil {
		return err
	}
	if err := reg.Validate(); err != nil {
		return err
	}
	return reg.Save(path)
}

func applyUpdate(a *registry.Activity, field, value string) error {
	switch field {
	case "status":
		a.ImplementationStatus = value
	case "version":
		a.Version = value
	case "description":
		a.Description = value
	case "timeout":
		a.Timeout = value
	case "retries":
		retries, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid retries value: %w", err)
		}
		a.Retries = retries
	default:
		return fmt.Errorf("unknown field: %s", field)
	}
	return nil
}

// validateRegistry checks structure and compiles every input schema.
func validateRegistry(path string) (int, error) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return 0, fmt.Errorf("failed to load registry: %w", err)
	}
	if len(reg.Activities) == 0 {
		return 0, fmt.Errorf("registry contains no activities")
	}
	if err := reg.Validate(); err != nil {
		return 0, err
	}
	if _, err := validation.NewValidator(reg); err != nil {
		return 0, err
	}
	return len(reg.Activities), nil
}

func checkVariables(path, taskType, varsPath string) (*validation.ValidationResult, error) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	if _, err := reg.Find(taskType); err != nil {
		return nil, err
	}
	v, err := validation.NewValidator(reg)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(varsPath)
	if err != nil {
		return nil, err
	}
	var vars interface{}
	if err := json.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("parse %s: %w", varsPath, err)
	}
	return v.ValidateInput(taskType, vars), nil
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  export   Write the built-in registry to a file for editing
  update   Update a field of an activity in a registry file
  validate Validate a registry file and compile its input schemas
  check    Validate a job variables file against a task's input schema
  help     Show this help message

Examples:
  registry-updater export -path configs/activity-registry.json
  registry-updater update -path configs/activity-registry.json -taskType search-sold-listings -field timeout -value 90s
  registry-updater validate -path configs/activity-registry.json
  registry-updater check -taskType search-sold-listings -vars vars.json

Use 'registry-updater <command> -h' for more information about a command.`)
}

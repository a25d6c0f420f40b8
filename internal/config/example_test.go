package config_test

import (
	"fmt"
	"log"
	"os"

	"github.com/GarrettC14/nutrirx-llm/internal/config"
)

// ExampleLoad demonstrates how to load configuration from the default location.
func ExampleLoad() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Printf("Models dir: %s\n", cfg.Models.Dir)
	fmt.Printf("Log level: %s\n", cfg.Logging.Level)
}

// ExampleLoadFromPath demonstrates loading config from a specific path.
func ExampleLoadFromPath() {
	cfg, err := config.LoadFromPath("/tmp/test-nutrirx/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Printf("Loaded from custom path\n")
	fmt.Printf("Models dir: %s\n", cfg.Models.Dir)
}

// ExampleConfig_Save demonstrates saving configuration changes.
func ExampleConfig_Save() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Modify configuration
	cfg.Logging.Level = "debug"

	// Save changes
	if err := cfg.Save(); err != nil {
		log.Fatalf("Failed to save config: %v", err)
	}

	fmt.Println("Configuration saved successfully")
}

// ExampleConfig_Validate demonstrates configuration validation.
func ExampleConfig_Validate() {
	cfg := config.Default()

	// Validate default config
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	fmt.Println("Configuration is valid")

	// Try an invalid configuration
	cfg.Logging.Level = "invalid-level"
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Validation error: %v\n", err)
	}
}

// ExampleConfig_EnsureDirectories demonstrates directory creation.
func ExampleConfig_EnsureDirectories() {
	cfg := config.Default()

	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("Failed to create directories: %v", err)
	}

	fmt.Println("All directories created successfully")
}

// ExampleDefault demonstrates creating a config with default values.
func ExampleDefault() {
	cfg := config.Default()

	fmt.Printf("Models dir: %s\n", cfg.Models.Dir)
	fmt.Printf("Log level: %s\n", cfg.Logging.Level)
}

// Example_environmentVariables demonstrates how environment variables override config.
func Example_environmentVariables() {
	// Set environment variables before loading config
	os.Setenv("NUTRIRX_MODELS_DIR", "/var/lib/nutrirx/models")
	os.Setenv("NUTRIRX_LOGGING_LEVEL", "debug")
	defer func() {
		os.Unsetenv("NUTRIRX_MODELS_DIR")
		os.Unsetenv("NUTRIRX_LOGGING_LEVEL")
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Environment variables override file values
	fmt.Printf("Models dir (from env): %s\n", cfg.Models.Dir)
	fmt.Printf("Log level (from env): %s\n", cfg.Logging.Level)
}

// Example_loggingConfiguration demonstrates logging setup.
func Example_loggingConfiguration() {
	cfg := config.Default()

	fmt.Printf("Log level: %s\n", cfg.Logging.Level)
	fmt.Printf("Log file: %s\n", cfg.Logging.File)

	// Change log level for debugging
	cfg.Logging.Level = "debug"

	fmt.Println("Log level set to debug")
}

// Example_fullWorkflow demonstrates a complete configuration workflow.
func Example_fullWorkflow() {
	// 1. Load existing config or create default
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Ensure all directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("Failed to create directories: %v", err)
	}

	// 3. Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 4. Use configuration
	fmt.Printf("Models stored under: %s\n", cfg.Models.Dir)

	// 5. Save any changes
	if err := cfg.Save(); err != nil {
		log.Fatalf("Failed to save config: %v", err)
	}

	fmt.Println("Configuration workflow complete")
}

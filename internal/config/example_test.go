package config_test

import (
	"fmt"
	"time"

	"github.com/glimpse/glimpse/internal/config"
)

// Example of creating a default configuration
func ExampleDefault() {
	cfg := config.Default()
	fmt.Println("Interval:", cfg.Capture.Interval)
	fmt.Println("Threshold:", cfg.Capture.Threshold)
	fmt.Println("Slot Policy:", cfg.Capture.SlotPolicy)
	// Output:
	// Interval: 3s
	// Threshold: 0.9
	// Slot Policy: retain
}

// Example of setting the capture interval with validation
func ExampleConfig_SetInterval() {
	cfg := config.Default()

	if err := cfg.SetInterval(10 * time.Second); err != nil {
		fmt.Println("Error:", err)
	} else {
		fmt.Println("Interval set to:", cfg.Capture.Interval)
	}

	if err := cfg.SetInterval(500 * time.Millisecond); err != nil {
		fmt.Println("Error:", err)
	}

	// Output:
	// Interval set to: 10s
	// Error: capture interval cannot be less than 1s
}

// Example of validating configuration
func ExampleConfig_Validate() {
	cfg := config.Default()

	if err := cfg.Validate(); err != nil {
		fmt.Println("Invalid config:", err)
	} else {
		fmt.Println("Configuration is valid")
	}

	cfg.Capture.SlotPolicy = "forget"
	fmt.Println(cfg.Validate())

	// Output:
	// Configuration is valid
	// unknown slot policy "forget" (valid: retain, prune)
}

package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// RuntimeConfig is the part of the configuration that may be changed at
// runtime through the web API. Wiring, transports and logging are left
// out.
type RuntimeConfig struct {
	Actuator ActuatorConfig `json:"Actuator"`
	Timing   TimingConfig   `json:"Timing"`
	Spelling SpellingConfig `json:"Spelling"`
	Motor    MotorConfig    `json:"Motor"`
}

// ConfigHandler serves GET and POST for /api/config on the file cfile.
func ConfigHandler(cfile string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			getConfigHandler(w, cfile)
		case http.MethodPost:
			setConfigHandler(w, r, cfile)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// getConfigHandler reads the file on every request, so it always answers
// with what is on disk.
func getConfigHandler(w http.ResponseWriter, cfile string) {
	slog.Info("Handling GET /api/config request")
	fullConfig, err := ReadConfig(cfile)
	if err != nil {
		slog.Error("Failed to read config file for API", "error", err)
		http.Error(w, "Failed to read configuration", http.StatusInternalServerError)
		return
	}

	runtimeConfig := RuntimeConfig{
		Actuator: fullConfig.Actuator,
		Timing:   fullConfig.Timing,
		Spelling: fullConfig.Spelling,
		Motor:    fullConfig.Motor,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(runtimeConfig); err != nil {
		slog.Error("Failed to encode runtime config to JSON", "error", err)
		http.Error(w, "Failed to serialize configuration", http.StatusInternalServerError)
	}
}

// setConfigHandler merges the posted runtime config into the file on disk.
// Writing the file is what makes the application reload.
func setConfigHandler(w http.ResponseWriter, r *http.Request, cfile string) {
	slog.Info("Handling POST /api/config request")
	defer r.Body.Close()
	var newRuntimeConfig RuntimeConfig
	if err := json.NewDecoder(r.Body).Decode(&newRuntimeConfig); err != nil {
		slog.Error("Failed to decode incoming JSON", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	fullConfig, err := ReadConfig(cfile)
	if err != nil {
		slog.Error("Failed to read existing config for update", "error", err)
		http.Error(w, "Failed to read configuration", http.StatusInternalServerError)
		return
	}

	fullConfig.Actuator = newRuntimeConfig.Actuator
	fullConfig.Timing = newRuntimeConfig.Timing
	fullConfig.Spelling = newRuntimeConfig.Spelling
	fullConfig.Motor = newRuntimeConfig.Motor

	if err := fullConfig.Validate(); err != nil {
		slog.Error("Validation failed for new config", "error", err)
		http.Error(w, fmt.Sprintf("Invalid configuration: %v", err), http.StatusBadRequest)
		return
	}

	if err := WriteConfig(cfile, fullConfig); err != nil {
		slog.Error("Failed to write updated config file", "error", err)
		http.Error(w, "Failed to save configuration", http.StatusInternalServerError)
		return
	}

	slog.Info("Successfully updated config file, application will reload.")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Configuration updated successfully.")
}

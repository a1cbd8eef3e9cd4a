// Package runner executes script files locally, preferring an isolated
// Docker container and falling back to the host interpreter. Only Python
// scripts run locally; Flux executes remotely via the service's invoke
// endpoint.
package runner

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	"github.com/tklein/scriptpad/internal/script"
)

const defaultRunTimeout = 2 * time.Minute

// Result captures the output of a script run.
type Result struct {
	Stdout   string
	Stderr   string
	Code     int
	TimedOut bool
}

// Runner executes a script file.
type Runner interface {
	// RunScript runs the script at path with a timeout (<=0 uses the
	// configured default).
	RunScript(ctx context.Context, path string, lang script.Language, timeout time.Duration) (Result, error)
}

// Mode selects the execution backend.
type Mode string

const (
	// ModeDocker uses Docker containers for isolation.
	ModeDocker Mode = "docker"
	// ModeHost runs the interpreter directly on the host (no isolation).
	ModeHost Mode = "host"
	// ModeAuto uses Docker when available, otherwise the host.
	ModeAuto Mode = "auto"
)

// ParseMode maps a configuration string onto a Mode, defaulting to auto.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "docker":
		return ModeDocker
	case "host":
		return ModeHost
	case "auto", "":
		return ModeAuto
	default:
		log.Printf("WARNING: unknown sandbox mode %q, defaulting to auto", s)
		return ModeAuto
	}
}

// Config holds execution settings.
type Config struct {
	Mode        Mode
	DockerImage string        // Custom image override
	CPU         string        // CPU limit (e.g. "2")
	Memory      string        // Memory limit (e.g. "512m")
	RunTimeout  time.Duration // Default timeout (0 = 2 minutes)
}

// DefaultConfig fills unset fields with safe defaults.
func DefaultConfig() Config {
	return Config{
		Mode:       ModeAuto,
		CPU:        "1",
		Memory:     "512m",
		RunTimeout: defaultRunTimeout,
	}
}

// IsDockerAvailable checks if Docker is installed and the daemon answers.
func IsDockerAvailable(ctx context.Context) bool {
	cmd := exec.CommandContext(ctx, "docker", "ps")
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run() == nil
}

// NewRunner creates a runner for the configured mode.
func NewRunner(ctx context.Context, config Config) Runner {
	switch config.Mode {
	case ModeDocker:
		dockerRunner, err := NewDockerRunner(config)
		if err != nil {
			log.Printf("WARNING: failed to create Docker runner: %v. Falling back to host execution.", err)
			return &HostRunner{config: config}
		}
		return dockerRunner

	case ModeHost:
		log.Printf("WARNING: running scripts directly on the host (no isolation).")
		return &HostRunner{config: config}

	default: // ModeAuto
		if IsDockerAvailable(ctx) {
			dockerRunner, err := NewDockerRunner(config)
			if err == nil {
				return dockerRunner
			}
			log.Printf("WARNING: Docker available but runner creation failed: %v. Falling back to host execution.", err)
		} else {
			log.Printf("WARNING: Docker not available. Running scripts directly on the host (no isolation).")
		}
		return &HostRunner{config: config}
	}
}

// checkLanguage rejects languages that have no local interpreter.
func checkLanguage(lang script.Language) error {
	if lang != script.LangPython {
		return fmt.Errorf("%s scripts cannot run locally; use the invoke command to execute them on the server", lang)
	}
	return nil
}

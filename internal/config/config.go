// Package config loads Fire Circle settings from the environment, an
// optional .env file, and an optional YAML circle definition.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"firecircle/internal/circle"
)

type Config struct {
	APIKey       string
	OutputDir    string
	ArchivePath  string
	VoiceCount   int
	MaxRounds    int
	MinimumViable int
	Policy       string
	CallTimeout  time.Duration
}

// Circle describes a named set of participant voices loaded from a YAML
// file. Per-voice capability (structured JSON output) travels with it so
// the evaluator adapter can pick the right prompt suffix.
type Circle struct {
	Name         string  `yaml:"name"`
	Instructions string  `yaml:"instructions"`
	Context      string  `yaml:"context"`
	Voices       []Voice `yaml:"voices"`
}

type Voice struct {
	ID         string `yaml:"id"`
	Structured bool   `yaml:"structured"`
}

func Load() (*Config, error) {
	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("config: OPENROUTER_API_KEY is required")
	}

	outputDir := os.Getenv("FIRECIRCLE_OUTPUT_DIR")
	if outputDir == "" {
		outputDir = "output"
	}

	archivePath := os.Getenv("FIRECIRCLE_ARCHIVE")
	if archivePath == "" {
		archivePath = "firecircle.db"
	}

	voiceCount, err := envInt("FIRECIRCLE_VOICES", 5)
	if err != nil {
		return nil, err
	}

	maxRounds, err := envInt("FIRECIRCLE_MAX_ROUNDS", 3)
	if err != nil {
		return nil, err
	}

	minimumViable, err := envInt("FIRECIRCLE_MIN_VIABLE", 2)
	if err != nil {
		return nil, err
	}

	timeoutSecs, err := envInt("FIRECIRCLE_TIMEOUT_SECONDS", 60)
	if err != nil {
		return nil, err
	}

	policy := os.Getenv("FIRECIRCLE_POLICY")
	if policy == "" {
		policy = string(circle.PolicyResilient)
	}
	switch circle.FailurePolicy(policy) {
	case circle.PolicyStrict, circle.PolicyResilient:
	default:
		return nil, fmt.Errorf("config: FIRECIRCLE_POLICY must be %q or %q, got %q",
			circle.PolicyStrict, circle.PolicyResilient, policy)
	}

	if voiceCount < 2 {
		return nil, fmt.Errorf("config: VoiceCount must be >= 2, got %d", voiceCount)
	}
	if maxRounds < 1 {
		return nil, fmt.Errorf("config: MaxRounds must be >= 1, got %d", maxRounds)
	}
	if minimumViable < 2 {
		return nil, fmt.Errorf("config: MinimumViable must be >= 2, got %d", minimumViable)
	}
	if minimumViable > voiceCount {
		return nil, fmt.Errorf("config: MinimumViable (%d) must be <= VoiceCount (%d)", minimumViable, voiceCount)
	}
	if timeoutSecs < 1 {
		return nil, fmt.Errorf("config: CallTimeout must be >= 1s, got %ds", timeoutSecs)
	}

	return &Config{
		APIKey:        apiKey,
		OutputDir:     outputDir,
		ArchivePath:   archivePath,
		VoiceCount:    voiceCount,
		MaxRounds:     maxRounds,
		MinimumViable: minimumViable,
		Policy:        policy,
		CallTimeout:   time.Duration(timeoutSecs) * time.Second,
	}, nil
}

// LoadDotEnv reads a .env file without clobbering variables already set
// in the environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: loading %s: %w", path, err)
	}
	return nil
}

// LoadCircle parses a YAML circle definition.
func LoadCircle(path string) (*Circle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading circle file: %w", err)
	}
	var c Circle
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parsing circle file %s: %w", path, err)
	}
	if len(c.Voices) == 0 {
		return nil, fmt.Errorf("config: circle file %s declares no voices", path)
	}
	seen := make(map[string]bool, len(c.Voices))
	for _, v := range c.Voices {
		if v.ID == "" {
			return nil, fmt.Errorf("config: circle file %s has a voice with no id", path)
		}
		if seen[v.ID] {
			return nil, fmt.Errorf("config: circle file %s repeats voice %q", path, v.ID)
		}
		seen[v.ID] = true
	}
	return &c, nil
}

func envInt(key string, defaultVal int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s value %q: %w", key, s, err)
	}
	return v, nil
}

package mesh

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadConfig loads the zone configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := validateZones(config.Zones); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateZones checks zone IDs and member lists. Cross-zone claims and
// unknown members are checked by BuildZones against the world collection.
func validateZones(zones []ZoneDefinition) error {
	seen := make(map[string]bool, len(zones))
	for i, z := range zones {
		if z.ID == "" {
			return fmt.Errorf("zones[%d].id is required", i)
		}
		if seen[z.ID] {
			return fmt.Errorf("zones[%d]: duplicate zone id %s", i, z.ID)
		}
		seen[z.ID] = true
		for j, m := range z.Members {
			if m == "" {
				return fmt.Errorf("zones[%d].members[%d] is empty for %s", i, j, z.ID)
			}
		}
	}
	return nil
}

// Validate checks the fields a run needs once file, env and flag values have
// been merged.
func (c *Config) Validate() error {
	if c.World == "" {
		return fmt.Errorf("world source is required")
	}
	if c.Out == "" {
		return fmt.Errorf("out path is required")
	}
	if c.CenterPrecision < 0 {
		return fmt.Errorf("centerPrecision must not be negative")
	}
	return validateZones(c.Zones)
}

// EnvOverrides are the environment variables that override the config file
type EnvOverrides struct {
	World           string `env:"ZONEMESH_WORLD"`
	Out             string `env:"ZONEMESH_OUT_PATH"`
	VerifyNoUpdates *bool  `env:"ZONEMESH_VERIFY_NO_UPDATES"`
	Broker          string `env:"MQTT_BROKER"`
	ClientID        string `env:"MQTT_CLIENT_ID"`
	Username        string `env:"MQTT_USERNAME"`
	Password        string `env:"MQTT_PASSWORD"`
	PublishPrefix   string `env:"MQTT_PUBLISH_PREFIX"`
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are skipped; variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment variables onto config
func ApplyEnv(config *Config) error {
	var o EnvOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if o.World != "" {
		config.World = o.World
	}
	if o.Out != "" {
		config.Out = o.Out
	}
	if o.VerifyNoUpdates != nil {
		config.VerifyNoUpdates = *o.VerifyNoUpdates
	}
	if o.Broker != "" {
		config.MQTT.Broker = o.Broker
	}
	if o.ClientID != "" {
		config.MQTT.ClientID = o.ClientID
	}
	if o.Username != "" {
		config.MQTT.Username = o.Username
	}
	if o.Password != "" {
		config.MQTT.Password = o.Password
	}
	if o.PublishPrefix != "" {
		config.MQTT.PublishPrefix = o.PublishPrefix
	}
	return nil
}

package mesh

import "github.com/paulmach/orb"

// Property keys written on every output feature.
const (
	PropZoneName       = "zoneName"
	PropCenter         = "center"
	PropMembers        = "members"
	PropAggregatedView = "isAggregatedView"
)

// DefaultIDProperty is the region property holding the region identifier.
const DefaultIDProperty = "zoneName"

// ZoneDefinition groups regions into one output zone
type ZoneDefinition struct {
	ID         string                 `yaml:"id" json:"id"`
	Members    []string               `yaml:"members" json:"members"`
	Properties map[string]interface{} `yaml:"properties,omitempty" json:"properties,omitempty"`
	// Center pins the zone center instead of computing it (e.g. zones whose mass
	// centroid falls in open sea).
	Center *[2]float64 `yaml:"center,omitempty" json:"center,omitempty"`
}

// CenterOverride returns the pinned center, if any
func (z *ZoneDefinition) CenterOverride() (orb.Point, bool) {
	if z.Center == nil {
		return orb.Point{}, false
	}
	return orb.Point{z.Center[0], z.Center[1]}, true
}

// TopologyConfig holds encoder settings
type TopologyConfig struct {
	PreQuantize  float64 `yaml:"preQuantize,omitempty" json:"preQuantize,omitempty"`
	PostQuantize float64 `yaml:"postQuantize,omitempty" json:"postQuantize,omitempty"`
}

// MQTTConfig holds MQTT connection settings for center publishing
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// Config represents the full configuration file
type Config struct {
	World           string           `yaml:"world" json:"world"`
	Out             string           `yaml:"out" json:"out"`
	VerifyNoUpdates bool             `yaml:"verifyNoUpdates,omitempty" json:"verifyNoUpdates,omitempty"`
	IDProperty      string           `yaml:"idProperty,omitempty" json:"idProperty,omitempty"`
	CenterPrecision int              `yaml:"centerPrecision,omitempty" json:"centerPrecision,omitempty"` // decimals; 0 keeps full precision
	Topology        TopologyConfig   `yaml:"topology,omitempty" json:"topology,omitempty"`
	MQTT            MQTTConfig       `yaml:"mqtt,omitempty" json:"mqtt,omitempty"`
	Zones           []ZoneDefinition `yaml:"zones" json:"zones"`
}

// GetZoneByID returns the zone definition with the given ID
func (c *Config) GetZoneByID(id string) *ZoneDefinition {
	for i := range c.Zones {
		if c.Zones[i].ID == id {
			return &c.Zones[i]
		}
	}
	return nil
}

// GetIDProperty returns the configured region ID property or the default
func (c *Config) GetIDProperty() string {
	if c.IDProperty == "" {
		return DefaultIDProperty
	}
	return c.IDProperty
}

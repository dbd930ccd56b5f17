package mesh

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultPublishPrefix is the topic prefix used when none is configured
const DefaultPublishPrefix = "zonemesh"

const publishTimeout = 2 * time.Second

// ZoneCenterMessage is published per output object
type ZoneCenterMessage struct {
	Zone             string     `json:"zone"`
	Center           [2]float64 `json:"center"`
	IsAggregatedView bool       `json:"isAggregatedView"`
	Timestamp        int64      `json:"timestamp"`
}

// ArtifactMessage summarizes one emit
type ArtifactMessage struct {
	Path      string `json:"path"`
	Objects   int    `json:"objects"`
	Written   bool   `json:"written"`
	Timestamp int64  `json:"timestamp"`
}

// Publisher publishes object centers of an emitted topology to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	now           func() time.Time
}

// NewPublisher creates a center publisher. An empty prefix means
// DefaultPublishPrefix. If client is nil, every publish fails.
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultPublishPrefix
	}
	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           1,
		retain:        true, // late subscribers get the current centers
		now:           time.Now,
	}
}

// PublishArtifact publishes every object center to {prefix}/zones/{name},
// in name order, followed by a summary on {prefix}/artifact.
func (p *Publisher) PublishArtifact(path string, res *EmitResult) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}
	if res == nil || res.Document == nil {
		return fmt.Errorf("publish artifact: nothing emitted")
	}

	doc := res.Document
	ts := p.now().Unix()

	names := make([]string, 0, len(doc.Objects))
	for name := range doc.Objects {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		obj := doc.Objects[name]
		c, ok := obj.Center()
		if !ok {
			log.Printf("[MQTT] object %s has no center, skipping", name)
			continue
		}
		aggregated, _ := obj.Properties[PropAggregatedView].(bool)
		msg := ZoneCenterMessage{
			Zone:             name,
			Center:           [2]float64{c[0], c[1]},
			IsAggregatedView: aggregated,
			Timestamp:        ts,
		}
		if err := p.publishJSON(fmt.Sprintf("%s/zones/%s", p.publishPrefix, name), msg); err != nil {
			return err
		}
	}

	summary := ArtifactMessage{
		Path:      path,
		Objects:   len(doc.Objects),
		Written:   res.Written,
		Timestamp: ts,
	}
	if err := p.publishJSON(p.publishPrefix+"/artifact", summary); err != nil {
		return err
	}

	log.Printf("[MQTT] published %d centers under %s/zones", len(names), p.publishPrefix)
	return nil
}

// publishJSON marshals v and publishes it to topic
func (p *Publisher) publishJSON(topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", topic, err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	return nil
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}

// Package mirror implements the producer's optional, non-contractual MQTT
// debug mirror: a best-effort JSON publish of the filtered record, split by
// channel group topic. It is off by default and never gates the UDP/shared
// memory publish path (spec.md §4.3 note on the debug mirror's advisory
// status).
//
// Grounded on the corpus's per-topic MQTT publish loop (imu_producer.go):
// connect once, then Publish per logical group on every tick, logging (not
// failing) on publish error.
package mirror

import (
	"encoding/json"
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/inertial_computer/internal/telemetry/record"
	"github.com/relabs-tech/inertial_computer/internal/telemetry/schema"
)

// Group names one MQTT topic's channel set, e.g. "motion" -> position/
// velocity/g-force, "suspension" -> the four corners.
type Group struct {
	Topic string
	Keys  []schema.DataKey
}

// DefaultGroups splits the record into the topic groups spec.md §6
// documents for the debug mirror.
func DefaultGroups(prefix string) []Group {
	return []Group{
		{Topic: prefix + "/motion", Keys: []schema.DataKey{
			schema.PositionX, schema.PositionY, schema.PositionZ,
			schema.LocalVelocityX, schema.LocalVelocityY, schema.LocalVelocityZ,
			schema.GForceLateral, schema.GForceVertical, schema.GForceLongitudinal,
			schema.Speed,
		}},
		{Topic: prefix + "/orientation", Keys: []schema.DataKey{
			schema.Pitch, schema.Yaw, schema.Roll,
			schema.YawVelocity, schema.PitchVelocity, schema.RollVelocity,
		}},
		{Topic: prefix + "/suspension", Keys: []schema.DataKey{
			schema.SuspensionPositionBL, schema.SuspensionPositionBR,
			schema.SuspensionPositionFL, schema.SuspensionPositionFR,
		}},
		{Topic: prefix + "/drivetrain", Keys: []schema.DataKey{
			schema.EngineRate, schema.Gear, schema.SteeringInput, schema.ThrottleInput, schema.BrakeInput,
		}},
		{Topic: prefix + "/state", Keys: []schema.DataKey{schema.Paused}},
	}
}

// Mirror publishes a filtered record's channel groups to MQTT on request.
type Mirror struct {
	client mqtt.Client
	groups []Group
}

// Connect dials the MQTT broker and returns a Mirror publishing the given
// groups. Callers should treat a Connect failure as non-fatal to the
// producer: the debug mirror is advisory only.
func Connect(broker, clientID string, groups []Group) (*Mirror, error) {
	opts := mqtt.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mirror: mqtt connect: %w", token.Error())
	}
	return &Mirror{client: client, groups: groups}, nil
}

// Publish sends every group's channel subset as a JSON object, keyed by
// channel name. Errors are logged, never returned: a lost debug publish
// must not affect the producer's hot path.
func (m *Mirror) Publish(r *record.Record) {
	for _, g := range m.groups {
		payload := make(map[string]float64, len(g.Keys))
		for _, k := range g.Keys {
			payload[k.Name()] = r.Get(k)
		}
		data, err := json.Marshal(payload)
		if err != nil {
			log.Printf("mirror: marshal %s: %v", g.Topic, err)
			continue
		}
		token := m.client.Publish(g.Topic, 0, true, data)
		token.Wait()
		if token.Error() != nil {
			log.Printf("mirror: publish %s: %v", g.Topic, token.Error())
		}
	}
}

// Close disconnects the MQTT client.
func (m *Mirror) Close() { m.client.Disconnect(250) }

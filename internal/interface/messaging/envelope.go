// Package messaging is the broker-facing surface: it consumes command
// envelopes from the user queue, routes them to the identity service and
// publishes exactly one correlated reply per command.
package messaging

import "encoding/json"

// CommandEnvelope is the body of an incoming broker message. The
// correlation id and reply queue ride on the AMQP message properties.
//
// Two body forms are accepted: the payload nested under "data", or the
// payload fields flattened alongside "operation". When "data" is absent the
// whole body doubles as the payload; handlers ignore the extra "operation"
// key.
type CommandEnvelope struct {
	Operation string          `json:"operation"`
	Data      json.RawMessage `json:"data"`
}

func (e *CommandEnvelope) UnmarshalJSON(b []byte) error {
	type plain CommandEnvelope
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if len(p.Data) == 0 || string(p.Data) == "null" {
		p.Data = append(json.RawMessage(nil), b...)
	}
	*e = CommandEnvelope(p)
	return nil
}

// UnknownOperationReply is the literal reply body for an unrecognized
// operation name.
const UnknownOperationReply = "Request-key not found"

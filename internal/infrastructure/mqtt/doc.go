// Package mqtt provides the MQTT transport between the DMX engine and the
// sACN relay.
//
// The relay owns the multicast sockets. It joins universes on request,
// decodes E1.31 packets into {universe, slots} JSON, and transmits whatever
// the engine publishes on the send topics.
//
//	DMX Engine ↔ MQTT Broker ↔ sACN Relay ↔ lighting network
//
// This package manages:
//   - A single connection attempt per Connect call (no automatic reconnect)
//   - Connection outcome callbacks for the adapter's retry loop
//   - Message publishing with QoS and a bounded wait
//   - Topic subscriptions, restored after each successful connect
//   - Last Will and Testament so the relay sees the engine go offline
//
// # Topics
//
//	graylogic/sacn/join/{u}   engine → relay   join request
//	graylogic/sacn/data/{u}   relay → engine   decoded slots
//	graylogic/sacn/send/{u}   engine → relay   outbound slots
//	graylogic/sacn/config     engine → relay   multicast settings (retained)
//	graylogic/sacn/ping|pong  round-trip probe
//	graylogic/health/sacn     adapter health (retained)
//
// # Usage
//
//	client := mqtt.New(cfg.MQTT)
//	client.SetConnectionHandlers(onConnect, onFailure)
//	client.Connect()
//	defer client.Close()
//
// # Security Considerations
//
//   - Enable TLS (mqtt.broker.tls) when the broker is not on localhost
//   - Credentials are validated against the broker ACL
package mqtt

// Package mqtt is the broker connection of the Gray Logic RF service.
//
// RF receivers publish raw pulse trains under graylogic/raw/rf433/<receiver>;
// the RF433 bridge subscribes to them, decodes SelectPlus frames and
// publishes state events. Transmit requests go the other way, to
// graylogic/transmit/rf433/<transmitter>.
//
//	RF receivers -> broker -> RF433 bridge -> broker -> Gray Logic Core
//
// The client reconnects on its own and restores its subscriptions. A
// retained status is kept on StatusTopic, with a last will so a crash shows
// as offline. Use TLS (mqtt.broker.tls) outside a lab network.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.WithWill(rf433.HealthTopic(), lwt))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe("graylogic/raw/rf433/+", 0, func(topic string, payload []byte) error {
//	    _, err := bridge.HandleRaw(path.Base(topic), payload)
//	    return err
//	})
package mqtt

// Package mqtt connects the home panel to a local MQTT broker.
//
// The broker is the home bus: other systems (home automation hubs,
// dashboards) read the panel's retained state and send it commands
// without talking to the microcontroller directly.
//
//	device ↔ homepanel-core ↔ MQTT broker ↔ other home systems
//
// This package manages:
//   - Connection with auto-reconnect and subscription restoration
//   - Retained availability on homepanel/<node>/status with an LWT
//   - Publish/subscribe with QoS and payload-size validation
//   - Handler panic recovery
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Node.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().AllCommands(), client.QoS(),
//	    func(topic string, payload []byte) error {
//	        name, _ := client.Topics().ParseCommand(topic)
//	        return handle(name, payload)
//	    })
//
// Use TLS (mqtt.broker.tls) whenever the broker is not on localhost.
package mqtt

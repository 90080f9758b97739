// Package mqtt provides MQTT client connectivity for onkyo-ctl.
//
// It wraps paho.mqtt.golang with:
//   - auto-reconnect and subscription restoration
//   - a retained online/offline status topic backed by a Last Will
//   - payload, QoS and topic validation
//
// All topics live under a configurable prefix (default "onkyo"):
//
//	onkyo/command/<operation>   commands for the receiver bridge
//	onkyo/ack/<operation>       command acknowledgements
//	onkyo/state                 retained receiver snapshot
//	onkyo/health                bridge health
//	onkyo/status                online/offline (LWT)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(client.Topics().State(), snapshot, true)
package mqtt

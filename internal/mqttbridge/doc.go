// Package mqttbridge exposes the receiver proxy over MQTT.
//
// Commands arrive on <prefix>/command/<operation> with a JSON payload
// {"id": "...", "value": ...}. Each is executed through the proxy and
// acknowledged on <prefix>/ack/<operation>. Change events are folded into a
// retained <prefix>/state message, and a health message including session
// statistics is published on <prefix>/health at a fixed interval.
//
// Operations:
//
//	power/on  power/off  power/switch
//	volume/set  volume/up  volume/down
//	subwoofer/set  subwoofer/up  subwoofer/down
//	input/set  profile/set
//
// The bridge goes through the same proxy as the HTTP API, so commands from
// both surfaces are serialised.
package mqttbridge

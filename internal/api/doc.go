// Package api provides the HTTP REST API and WebSocket server for onkyo-ctl.
//
// It exposes the receiver's power, volume, subwoofer, input and profile
// operations, plus health, metrics and a live event stream.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
//
// # Routes
//
//	GET  /power                 {is_powered}
//	PUT  /power/on|off|switch   {is_powered}
//	GET  /volume                {level}
//	PUT  /volume?level=N        {level}, clamped to the active maximum
//	PUT  /volume/up|down        {level}
//	GET  /subwoofer             {level}
//	PUT  /subwoofer?level=N     {level}, 404 outside (-8, 8)
//	PUT  /subwoofer/up|down     {level}
//	GET  /input                 {selector}
//	PUT  /input?selector=S      {selector}
//	GET  /inputs                known input selectors
//	GET  /profile               current profile, 404 when none matches
//	PUT  /profile?name=N        applied profile, 404 for unknown names
//	GET  /profiles              profile catalog
//	GET  /device                live snapshot
//	GET  /health, /metrics
//	GET  /ws                    event feed, latest state replayed on connect
//
// Device failures map to 429 when the receiver rejects a command and 503
// when it cannot be reached or every attempt returned an undecodable reply.
package api

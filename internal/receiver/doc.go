// Package receiver implements the control operations for one receiver on
// top of an eiscp session: power, master volume, subwoofer level, input
// selection, profiles and live snapshots.
//
// Every public operation holds the proxy lock for its whole duration, so
// compound operations such as SwitchPower or SetProfile are never
// interleaved with another caller's commands. Operations are detached from
// caller cancellation once started; the session's connect and response
// timeouts bound them instead.
//
// Safety checks run before any command is sent:
//   - SetVolume clamps to the effective maximum (or rejects, see Options)
//   - SetSubwooferLevel rejects levels outside (-8, 8)
//
// Successful changes are published as Events to subscribers.
package receiver

// Package eiscp talks to Onkyo and Integra receivers using ISCP messages,
// either framed as eISCP over TCP (port 60128) or as plain ISCP over the
// receiver's RS-232 port.
//
// # Messages
//
// An ISCP message is a three letter command prefix followed by a parameter:
//
//	PWR01    power on
//	MVL1A    master volume 26
//	SLI12    input selector "tv"
//	SWL-06   subwoofer level -6
//	PWRQSTN  power query
//
// # Command families
//
// Two families of commands are supported:
//
//   - Named commands written as KEY=VALUE ("system-power=on",
//     "master-volume=level-up", "input-selector=query"). These are encoded
//     through a command table and their responses are decoded back into
//     KEY=VALUE form. Multi-name values are joined with commas, so input
//     selector 01 decodes to "video2,cbl,sat".
//   - Raw messages addressed by prefix ("SWLQSTN", "SWL+02"). Exchange
//     returns the reply as received; Level parses a signed level reply.
//
// # Exchanges
//
// A Session performs one exchange at a time: it dials a fresh connection,
// writes the message, reads until a reply with the same prefix arrives and
// closes the connection. Transient failures, including replies that Command
// or Level cannot decode, are retried up to MaxAttempts with a fixed
// backoff. A reply parameter of "N/A" means the receiver refused
// the command and is returned immediately as ErrRejected.
//
// # Thread Safety
//
// Session is safe for concurrent use. Exchanges are serialised.
package eiscp

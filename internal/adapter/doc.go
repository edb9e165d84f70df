// Package adapter implements the probes linkwatch uses to observe devices.
//
// # Sessions
//
// Session is an authenticated command-line session with a router. Routers are
// reached over telnet by default (Username/Password prompts answered in
// band) or over ssh when the device sets transport: ssh. Either way the
// session waits for a prompt ending in ">" or "#", runs commands, answers
// "--More--" pagination with a space and sends "exit" when closed.
//
// Every protocol step has a bounded wait taken from Timing.
//
// # Probes
//
// RouterProbe checks liveness (bare connect), fetches the diagnostic command
// set and relays pings from a router. LocalProbe pings hosts directly from
// this machine with the system ping command.
//
// Probe failures are classified (ErrConnect, ErrAuth, ErrProbeTimeout,
// ErrParseMismatch) for logs and metrics, but callers only ever see a
// boolean or an empty Diagnostics map.
package adapter

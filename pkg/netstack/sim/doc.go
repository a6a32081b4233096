// Package sim is an in-process netstack.Stack implementation. The radio
// associates against a single configured network, provisioning runs over
// a loopback transport, and all events flow through an in-memory bus.
//
// It backs the test suite and lets the device binary run on a developer
// machine without wireless hardware.
package sim

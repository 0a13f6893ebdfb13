// Package services implements the driving ports: the session manager with
// its recovery chain, the relay with its retry policy, the OAuth bootstrap,
// settings and the background scheduler.
//
// Services reach the network, storage and the browser only through the
// driven ports, so every one of them runs in tests against mocks.
package services

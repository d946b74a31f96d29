// Package `synchat` implements chat over TCP with clock synchronization.
//
// Launch the server:
//
//	synchat server --addr 127.0.0.1:5000
//
// Join the chat from another terminal:
//
//	synchat client alice --addr 127.0.0.1:5000
//
// Every client periodically estimates the server clock offset with Cristian's
// algorithm and may simulate local clock drift with --drift-rate.
// Settings are read from the environment (SYNCHAT_* variables, .env file
// supported) and may be overridden with flags.
package main

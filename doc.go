// Package a2aprobe is a command-line client for A2A (Agent-to-Agent)
// agents.
//
// It connects to an agent, prints its card, sends a suite of messages and
// prints every event the agent streams back. It is meant for checking that
// a server speaks A2A the way the Go SDK expects.
//
// # Quick Start
//
// Install the probe:
//
//	go install github.com/kadirpekel/a2aprobe/cmd/a2aprobe@latest
//
// Start any A2A server on port 8080 and run:
//
//	a2aprobe
//
// The default suite sends three messages: a plain text message, a
// multi-part message in context ctx-123, and a follow-up to task task-456.
// At most 10 events are read per message.
//
// # Configuration
//
// Everything can be set in a YAML file:
//
//	server:
//	  url: http://localhost:8080
//	  headers:
//	    X-Team: probe
//	client:
//	  streaming: true
//	  transports: [JSONRPC, GRPC]
//	auth:
//	  credentials:
//	    BearerAuth: ${AGENT_TOKEN}
//	run:
//	  max_events: 10
//	  scenarios:
//	    - name: Echo check
//	      expect_echo: true
//	      parts:
//	        - text: ping
//
// Validate a file with "a2aprobe validate probe.yaml" and rerun on every
// save with "a2aprobe run --config probe.yaml --watch".
//
// The same document can live in Consul, etcd or ZooKeeper:
//
//	a2aprobe run --config consul://localhost:8500/a2aprobe/config --watch
//	a2aprobe run --config etcd://localhost:2379/a2aprobe/config
//	a2aprobe run --config zk://localhost:2181/a2aprobe/config
//
// # Using as Go Library
//
// The building blocks are importable:
//
//	import (
//	    "github.com/kadirpekel/a2aprobe/pkg/client"
//	    "github.com/kadirpekel/a2aprobe/pkg/display"
//	    "github.com/kadirpekel/a2aprobe/pkg/runner"
//	)
//
// # License
//
// Apache-2.0.
package a2aprobe

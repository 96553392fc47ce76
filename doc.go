// Package fireedge is a REST and WebSocket gateway for OpenNebula.
//
// # Overview
//
// FireEdge sits in front of the OpenNebula daemon (oned). It translates
// JSON-over-HTTP requests into oned XML-RPC calls, proxies the OneFlow
// service API, and relays the hook events oned publishes on ZeroMQ to
// browser clients over WebSocket.
//
// # Architecture
//
//	┌─────────────────┐        ┌─────────────────┐
//	│  REST client    │        │  WebSocket      │
//	│  (Sunstone/CLI) │        │  client         │
//	└────────┬────────┘        └────────┬────────┘
//	         │ /api/...                 │ /ws/hooks
//	┌────────▼──────────────────────────▼────────┐
//	│  FireEdge (Echo)                            │
//	│  JWT auth · command catalog · zone resolver │
//	└────────┬──────────────┬────────────┬───────┘
//	         │ XML-RPC      │ HTTP       │ ZeroMQ SUB
//	┌────────▼───────┐ ┌────▼─────┐ ┌────▼───────┐
//	│  oned          │ │ OneFlow  │ │ oned hooks │
//	└────────────────┘ └──────────┘ └────────────┘
//
// # Core Features
//
//   - Command Gateway: every catalog command is served at
//     /api/<resource>/<action>[/<id>...]; parameters come from the path,
//     the query string and the JSON body and are passed to oned in order
//   - Authentication: POST /api/auth exchanges OpenNebula credentials for a
//     JWT carrying the oned login token
//   - Zones: requests select a federation zone with ?zone=<id>; unknown
//     zones are looked up with one.zone.info and cached
//   - OneFlow: /api/service and /api/service_template proxy the OneFlow server
//   - Hook Relay: /ws/hooks?resource=vm&id=5 streams matching hook events
//
// # Usage
//
// Start the server:
//
//	fireedge server --config config.yaml
//
// Call a command through a running server:
//
//	export FE_TOKEN=$(fireedge login --user oneadmin --password opennebula -q)
//	fireedge call vm.info id=5
//
// # Configuration
//
// Configuration is read from config.yaml and FE_ prefixed environment
// variables:
//
//	FE_SERVER_PORT=2616
//	FE_OPENNEBULA_RPC=http://localhost:2633/RPC2
//	FE_OPENNEBULA_ZEROMQ=tcp://localhost:2101
//	FE_SECURITY_JWT_SECRET=change-me
//
// # API Endpoints
//
//	POST   /api/auth                       - Log in, returns a JWT
//	GET    /api/version                    - Gateway and oned versions
//	GET    /api/commands                   - Command catalog
//	GET    /api/zones                      - Configured zones
//	ANY    /api/<resource>/<action>[/...]  - oned command
//	GET    /api/service[/<id>]             - OneFlow services
//	POST   /api/service/<id>/action        - OneFlow service action
//	DELETE /api/service/<id>               - Delete a OneFlow service
//	GET    /api/service_template[/<id>]    - OneFlow templates
//	POST   /api/service_template/<id>/action
//	GET    /api/hooks/stats                - Live hook sessions
//	GET    /ws/hooks                       - Hook event WebSocket
//	GET    /health                         - Health check
//	GET    /metrics                        - Prometheus metrics
//
// Successful responses use the envelope {"id":200,"message":"OK","data":...}.
// oned error codes map to HTTP statuses: authentication 401, authorization
// 403, missing object 404, locked 423, and an unreachable oned 502.
package fireedge

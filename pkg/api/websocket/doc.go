// Package websocket provides real-time event streaming via WebSocket.
//
// Clients can connect to /api/v1/events/ws to receive every event posted
// on the bus, or pass ?types=publisher.Notice,publisher.Heartbeat to
// receive only some event types.
package websocket

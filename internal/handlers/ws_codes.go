// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes for the room socket.
const (
	BadSubprotocolError   = 3000 // Client did not negotiate the heartboard subprotocol.
	InvalidAuthTokenError = 3001 // Identity could not be resolved or issued.
	SlowConsumerError     = 3004 // Outbound buffer overflowed; the client is not reading.
)

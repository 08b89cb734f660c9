package gateway

// Messenger defines the interface for outbound notification gateways
// (Telegram, Discord, etc.)
type Messenger interface {
	// Send delivers a message to a specific chat or channel
	Send(chatID string, text string) error
	// Stop gracefully shuts down the gateway
	Stop() error
}

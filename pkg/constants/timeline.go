package constants

// Timeline event types. Each transition writes the event named after it.
const (
	EventCreated      = "created"
	EventAssigned     = "assigned"
	EventConfirmed    = "confirmed"
	EventEnRoute      = "en_route"
	EventArrived      = "arrived"
	EventStarted      = "started"
	EventCompleted    = "completed"
	EventCancelled    = "cancelled"
	EventQuoteSent    = "quote_sent"
	EventCostsUpdated = "costs_updated"
)

// Contact attempt channels. None marks a dispatch where no message was sent.
const (
	ContactChannelEmail = "email"
	ContactChannelSMS   = "sms"
	ContactChannelNone  = "none"
)

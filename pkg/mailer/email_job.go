package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// HTML is optional; Text is recommended as fallback.
// A job may instead name a Template and carry its Data.
type EmailJob struct {
	From     string         `json:"from,omitempty"`
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "new_message"
	Data     map[string]any `json:"data,omitempty"`
}

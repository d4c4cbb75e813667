package mailer

import "time"

// TemplateWelcome is sent once a registration has been stored.
const TemplateWelcome = "welcome"

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either Template (+Data) or Subject/Text/HTML must be set.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// NewWelcomeJob builds the welcome email for a new registration. ip may be
// empty; when set the worker resolves it to a location.
func NewWelcomeJob(to, name string, at time.Time, ip string) EmailJob {
	data := map[string]any{
		"Name":   name,
		"TimeAt": at.UTC().Format(time.RFC3339),
	}
	if ip != "" {
		data["IP"] = ip
	}
	return EmailJob{To: to, Template: TemplateWelcome, Data: data}
}

// String returns the string value stored under key, or "".
func (j EmailJob) String(key string) string {
	if v, ok := j.Data[key].(string); ok {
		return v
	}
	return ""
}

// MessageType is the AMQP type of the job, e.g. "email.welcome".
func (j EmailJob) MessageType() string {
	if j.Template == "" {
		return "email.raw"
	}
	return "email." + j.Template
}

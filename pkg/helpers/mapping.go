package helpers

import (
	"fmt"
	"strings"

	"github.com/oksasatya/go-ddd-private-messages/pkg/mailer"
)

// NormalizeJob fills defaults on a dequeued email job: the sender address,
// a lower-cased template name and the recipient inside template data.
func NormalizeJob(job *mailer.EmailJob, defaultFrom string) {
	job.To = strings.TrimSpace(job.To)
	if strings.TrimSpace(job.From) == "" {
		job.From = defaultFrom
	}
	job.Template = strings.ToLower(strings.TrimSpace(job.Template))
	if job.Template == "" {
		return
	}
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["RecipientEmail"] = job.To
	}
}

// ValidJob reports whether a job can be delivered as-is or after rendering.
func ValidJob(job mailer.EmailJob) error {
	if job.To == "" {
		return fmt.Errorf("email job: missing recipient")
	}
	if job.Template == "" && job.Subject == "" {
		return fmt.Errorf("email job: subject or template required")
	}
	if job.Template == "" && job.Text == "" && job.HTML == "" {
		return fmt.Errorf("email job: text or html body required")
	}
	return nil
}

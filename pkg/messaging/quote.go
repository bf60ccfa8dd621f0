package messaging

import (
	"strings"

	"github.com/mitchellh/go-wordwrap"
)

// QuoteWidth is the column at which quoted bodies are wrapped.
const QuoteWidth = 55

// QuotePrefix is prepended to every quoted line.
const QuotePrefix = "> "

// FormatQuote wraps body at QuoteWidth characters, prefixes each line with
// QuotePrefix and renders "<sender> wrote:" above it. Used for quoting
// messages in replies.
func FormatQuote(sender, body string) string {
	return defaultPrinter.FormatQuote(sender, body)
}

// FormatQuote is the language-aware variant of the package-level FormatQuote.
func (p *Printer) FormatQuote(sender, body string) string {
	return p.Sprintf(KeyQuote, sender, Quote(body))
}

// Quote wraps and prefixes body without the attribution line.
func Quote(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	lines := strings.Split(wordwrap.WrapString(body, QuoteWidth), "\n")
	for i, line := range lines {
		lines[i] = QuotePrefix + line
	}
	return strings.Join(lines, "\n")
}

package messaging

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. English text doubles as the key, so an untranslated
// language falls back to it.
const (
	KeyQuote      = "%[1]s wrote:\n%[2]s"
	KeyReSubject  = "Re%[1]s: %[2]s"
	KeyNewMessage = "New Message: %s"
)

var translations = map[language.Tag]map[string]string{
	language.English: {
		KeyQuote:      KeyQuote,
		KeyReSubject:  KeyReSubject,
		KeyNewMessage: KeyNewMessage,
	},
	language.German: {
		KeyQuote:      "%[1]s schrieb:\n%[2]s",
		KeyReSubject:  "AW%[1]s: %[2]s",
		KeyNewMessage: "Neue Nachricht: %s",
	},
	language.French: {
		KeyQuote:      "%[1]s a écrit :\n%[2]s",
		KeyReSubject:  "RE%[1]s : %[2]s",
		KeyNewMessage: "Nouveau message : %s",
	},
	language.Spanish: {
		KeyQuote:      "%[1]s escribió:\n%[2]s",
		KeyReSubject:  "RE%[1]s: %[2]s",
		KeyNewMessage: "Nuevo mensaje: %s",
	},
	language.Indonesian: {
		KeyQuote:      "%[1]s menulis:\n%[2]s",
		KeyReSubject:  "Balas%[1]s: %[2]s",
		KeyNewMessage: "Pesan Baru: %s",
	},
}

var cat = buildCatalog()

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, entries := range translations {
		for key, msg := range entries {
			_ = b.SetString(tag, key, msg)
		}
	}
	return b
}

// Printer renders the message strings for a single language.
type Printer struct {
	p *message.Printer
}

// NewPrinter returns a Printer for the given BCP 47 language code. Unknown
// or empty codes fall back to English.
func NewPrinter(lang string) *Printer {
	tag := language.English
	if lang != "" {
		if t, err := language.Parse(lang); err == nil {
			tag = t
		}
	}
	matcher := language.NewMatcher(cat.Languages())
	_, idx, conf := matcher.Match(tag)
	if conf != language.No {
		tag = cat.Languages()[idx]
	} else {
		tag = language.English
	}
	return &Printer{p: message.NewPrinter(tag, message.Catalog(cat))}
}

// Sprintf formats a catalog key with args.
func (p *Printer) Sprintf(key string, args ...any) string {
	return p.p.Sprintf(key, args...)
}

var defaultPrinter = NewPrinter("en")

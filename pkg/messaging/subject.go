package messaging

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var subjectPrefixRe = regexp.MustCompile(`^Re\[(\d*)\]: `)

// FormatSubject prepends "Re:" to subject. A subject that already carries a
// "Re: " or "Re[n]: " prefix gets a counter instead of a second "Re:".
//
//	"Hello"        -> "Re: Hello"
//	"Re: Hello"    -> "Re[2]: Hello"
//	"Re[2]: Hello" -> "Re[3]: Hello"
//
// Prefix detection only recognises the English "Re"; translated prefixes
// produced by other printers are not counted.
func FormatSubject(subject string) string {
	return defaultPrinter.FormatSubject(subject)
}

// FormatSubject is the language-aware variant of the package-level
// FormatSubject.
func (p *Printer) FormatSubject(subject string) string {
	prefix, rest := nextPrefix(subject)
	return p.Sprintf(KeyReSubject, prefix, rest)
}

// nextPrefix returns the counter part of the new prefix ("" or "[n]") and
// the subject with any recognised prefix removed. Unparseable counters fall
// back to a plain prefix over the untouched subject.
func nextPrefix(subject string) (string, string) {
	if strings.HasPrefix(subject, "Re: ") {
		return "[2]", subject[len("Re: "):]
	}
	m := subjectPrefixRe.FindStringSubmatch(subject)
	if m == nil {
		return "", subject
	}
	num, err := strconv.Atoi(m[1])
	if err != nil || num < 0 || num == int(^uint(0)>>1) {
		return "", subject
	}
	return fmt.Sprintf("[%d]", num+1), subject[len(m[0]):]
}

package templates

import (
	"io"
	"strings"

	"github.com/a-h/templ"
)

// htmlBuilder accumulates a fragment so a component writes it in one call.
type htmlBuilder struct {
	sb strings.Builder
}

// wrap writes prefix, the escaped value, then suffix.
func (b *htmlBuilder) wrap(prefix, value, suffix string) {
	b.sb.WriteString(prefix)
	b.sb.WriteString(templ.EscapeString(value))
	b.sb.WriteString(suffix)
}

func (b *htmlBuilder) raw(s string) {
	b.sb.WriteString(s)
}

func (b *htmlBuilder) text(s string) {
	b.sb.WriteString(templ.EscapeString(s))
}

func (b *htmlBuilder) flush(w io.Writer) error {
	_, err := io.WriteString(w, b.sb.String())
	return err
}

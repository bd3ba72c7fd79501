package templates

import (
	"context"
	"io"
	"sort"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/pretrip/internal/blueprint"
)

// SessionSummary renders the grouped blueprint as nested lists with the
// rename table and any skipped rows.
func SessionSummary(id string, view blueprint.SessionView, report blueprint.GroupReport) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b htmlBuilder
		b.wrap(`<section class="blueprint-summary" data-session="`, id, `">`)
		b.raw(`<header><h2>Blueprint preview</h2><p>`)
		b.text(strconv.Itoa(view.Items) + " items in " + strconv.Itoa(len(view.Groups)) + " equipment groups")
		b.raw(`</p></header>`)

		for _, g := range view.Groups {
			b.wrap(`<details open class="equipment"><summary>`, g.Name, `</summary>`)
			for _, sec := range g.Sections {
				b.wrap(`<div class="section"><h3>`, sec.Name, `</h3><ul>`)
				for _, it := range sec.Items {
					b.wrap(`<li>`, it.Fields[blueprint.ColInspectionItem], ``)
					if d := it.Fields[blueprint.ColDetails]; d != "" {
						b.wrap(` <span class="details">`, d, `</span>`)
					}
					b.raw(`</li>`)
				}
				b.raw(`</ul></div>`)
			}
			b.raw(`</details>`)
		}

		if len(view.Renames) > 0 {
			origins := make([]string, 0, len(view.Renames))
			for k := range view.Renames {
				origins = append(origins, k)
			}
			sort.Strings(origins)

			b.raw(`<table class="renames"><thead><tr><th>Original</th><th>Current</th></tr></thead><tbody>`)
			for _, o := range origins {
				b.wrap(`<tr><td>`, o, `</td>`)
				b.wrap(`<td>`, view.Renames[o], `</td></tr>`)
			}
			b.raw(`</tbody></table>`)
		}

		if len(report.Skipped) > 0 {
			b.raw(`<p class="skipped">Skipped rows missing equipment, section or item: `)
			for i, row := range report.Skipped {
				if i > 0 {
					b.raw(", ")
				}
				b.text(strconv.Itoa(row))
			}
			b.raw(`</p>`)
		}

		b.raw(`</section>`)
		return b.flush(w)
	})
}

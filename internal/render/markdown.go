package render

import (
	"fmt"
	"strings"

	"github.com/starford/blockpress/internal/models"
	"github.com/starford/blockpress/internal/pageid"
	"github.com/starford/blockpress/internal/recordmap"
)

// URLFunc maps a page id to the site-relative URL it is published at.
type URLFunc func(pageID string) string

// markdownWriter turns a block tree into Markdown and records the pages
// it links to.
type markdownWriter struct {
	rm     *models.RecordMap
	url    URLFunc
	b      strings.Builder
	links  []string
	linked map[string]struct{}
	prev   string // type of the previous top-level block written
}

func newMarkdownWriter(rm *models.RecordMap, url URLFunc) *markdownWriter {
	if url == nil {
		url = func(id string) string { return "/" + pageid.Compact(id) }
	}
	return &markdownWriter{rm: rm, url: url, linked: map[string]struct{}{}}
}

func (w *markdownWriter) link(id string) string {
	norm := pageid.Normalize(id)
	if _, ok := w.linked[norm]; !ok {
		w.linked[norm] = struct{}{}
		w.links = append(w.links, norm)
	}
	return w.url(norm)
}

// writeChildren renders the content of parent at the given list depth.
func (w *markdownWriter) writeChildren(parent *models.Block, depth int, visited map[string]struct{}) {
	for _, id := range parent.Content {
		child := w.rm.GetBlock(id)
		if child == nil || !child.IsAlive() {
			continue
		}
		if _, ok := visited[child.ID]; ok {
			continue
		}
		visited[child.ID] = struct{}{}
		w.writeBlock(child, depth, visited)
	}
}

func (w *markdownWriter) separate(typ string, depth int) {
	if w.b.Len() == 0 {
		w.prev = typ
		return
	}
	if depth > 0 || (isListItem(typ) && typ == w.prev) {
		w.b.WriteString("\n")
	} else {
		w.b.WriteString("\n\n")
	}
	if depth == 0 {
		w.prev = typ
	}
}

func isListItem(typ string) bool {
	switch typ {
	case "bulleted_list", "numbered_list", "to_do":
		return true
	}
	return false
}

func (w *markdownWriter) writeBlock(block *models.Block, depth int, visited map[string]struct{}) {
	indent := strings.Repeat("  ", depth)
	text := w.inline(block.Properties["title"])

	switch block.Type {
	case models.BlockTypePage, models.BlockTypeCollectionViewPage:
		title := recordmap.TitleOf(block, w.rm)
		if title == "" {
			title = "Untitled"
		}
		w.separate(block.Type, depth)
		fmt.Fprintf(&w.b, "%s[%s](%s)", indent, escape(title), w.link(block.ID))
		return // sub-pages render on their own URL

	case "header", "sub_header", "sub_sub_header":
		if text == "" {
			return
		}
		level := map[string]int{"header": 1, "sub_header": 2, "sub_sub_header": 3}[block.Type]
		w.separate(block.Type, 0)
		fmt.Fprintf(&w.b, "%s %s", strings.Repeat("#", level), text)
		return

	case "bulleted_list", "numbered_list", "to_do":
		marker := "-"
		switch block.Type {
		case "numbered_list":
			marker = "1."
		case "to_do":
			marker = "- [ ]"
			if block.Properties["checked"].PlainText() == "Yes" {
				marker = "- [x]"
			}
		}
		w.separate(block.Type, depth)
		fmt.Fprintf(&w.b, "%s%s %s", indent, marker, text)
		w.writeChildren(block, depth+1, visited)
		return

	case "quote", "callout":
		if icon := block.FormatString("page_icon"); icon != "" && block.Type == "callout" {
			text = icon + " " + text
		}
		w.separate(block.Type, 0)
		w.b.WriteString(quoteLines(text))
		return

	case "code":
		lang := strings.ToLower(block.Properties["language"].PlainText())
		if lang == "plain text" {
			lang = ""
		}
		w.separate(block.Type, 0)
		fmt.Fprintf(&w.b, "```%s\n%s\n```", strings.ReplaceAll(lang, " ", "-"), block.Properties["title"].PlainText())
		return

	case "divider":
		w.separate(block.Type, 0)
		w.b.WriteString("---")
		return

	case "image":
		src := block.FormatString("display_source")
		if src == "" {
			src = block.Properties["source"].PlainText()
		}
		if src == "" {
			return
		}
		w.separate(block.Type, 0)
		fmt.Fprintf(&w.b, "![%s](%s)", escape(block.Properties["caption"].PlainText()), src)
		return

	case "bookmark":
		href := block.Properties["link"].PlainText()
		if href == "" {
			return
		}
		title := block.Properties["title"].PlainText()
		if title == "" {
			title = href
		}
		w.separate(block.Type, 0)
		fmt.Fprintf(&w.b, "[%s](%s)", escape(title), href)
		return

	case "collection_view":
		// Inline databases list their rows as links.
		for _, id := range collectionRows(block, w.rm) {
			row := w.rm.GetBlock(id)
			if row == nil || !row.IsAlive() {
				continue
			}
			title := recordmap.TitleOf(row, w.rm)
			if title == "" {
				title = "Untitled"
			}
			w.separate("bulleted_list", depth)
			fmt.Fprintf(&w.b, "%s- [%s](%s)", indent, escape(title), w.link(row.ID))
		}
		return
	}

	// text, toggle and anything unknown: paragraph followed by children.
	if text != "" {
		w.separate(block.Type, depth)
		w.b.WriteString(indent + text)
	}
	w.writeChildren(block, depth, visited)
}

func collectionRows(block *models.Block, rm *models.RecordMap) []string {
	views := rm.CollectionQuery[block.CollectionID]
	for _, vid := range block.ViewIDs {
		if q, ok := views[vid]; ok {
			return q.IDs()
		}
	}
	return nil
}

// inline renders rich text with its decorations as Markdown.
func (w *markdownWriter) inline(rt models.RichText) string {
	var b strings.Builder
	for _, span := range rt {
		if d, ok := span.Decoration("p"); ok {
			id := d.StringArg(0)
			title := "Untitled"
			if target := w.rm.GetBlock(id); target != nil {
				if t := recordmap.TitleOf(target, w.rm); t != "" {
					title = t
				}
			}
			fmt.Fprintf(&b, "[%s](%s)", escape(title), w.link(id))
			continue
		}
		if d, ok := span.Decoration("d"); ok {
			if dv, err := d.Date(); err == nil {
				b.WriteString(escape(dv.StartDate))
				continue
			}
		}

		s := span.Text
		if span.Has("c") {
			s = "`" + s + "`"
		} else {
			s = escape(s)
		}
		if span.Has("b") {
			s = "**" + s + "**"
		}
		if span.Has("i") {
			s = "_" + s + "_"
		}
		if span.Has("s") {
			s = "~~" + s + "~~"
		}
		if d, ok := span.Decoration("a"); ok {
			href := d.StringArg(0)
			if strings.HasPrefix(href, "/") {
				if id, err := pageid.Parse(strings.TrimPrefix(href, "/")); err == nil {
					href = w.link(id)
				}
			}
			s = "[" + s + "](" + href + ")"
		}
		b.WriteString(s)
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", `\<`, "#", `\#`,
)

func escape(s string) string { return markdownEscaper.Replace(s) }

func quoteLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}

package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter writes a listing as a Markdown document.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(listing *Listing) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Contacts")
	md.PlainText("")
	md.PlainTextf("Generated %s", listing.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	md.PlainText("")

	w.writeContacts(md, listing)
	w.writeSummary(md, listing)
	w.writeSources(md, listing)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Generated by contactscan*")

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeContacts(md *markdown.Markdown, listing *Listing) {
	if len(listing.Contacts) == 0 {
		md.Note("No contacts found yet.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(listing.Contacts))
	for i, c := range listing.Contacts {
		phone := c.Phone
		if phone == "" {
			phone = "-"
		}
		rows[i] = []string{truncateString(c.Name, 40), c.Email, phone}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Name", "Email", "Phone"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeSummary writes the counts and, when there is something to show,
// a chart of how complete the contacts are.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, listing *Listing) {
	total := len(listing.Contacts)
	if total == 0 {
		return
	}

	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Contacts", strconv.Itoa(total)},
			{"Named", strconv.Itoa(listing.Named())},
			{"With phone", strconv.Itoa(listing.WithPhone())},
		},
	})
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Name inference"),
		piechart.WithShowData(true),
	)
	if named := listing.Named(); named > 0 {
		chart.LabelAndIntValue("Named", uint64(named))
	}
	if unknown := total - listing.Named(); unknown > 0 {
		chart.LabelAndIntValue("Unknown", uint64(unknown))
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeSources(md *markdown.Markdown, listing *Listing) {
	if len(listing.Sources) == 0 {
		return
	}

	md.H2("Scanned pages")
	md.PlainText("")
	rows := make([][]string, len(listing.Sources))
	for i, s := range listing.Sources {
		title := s.Title
		if title == "" {
			title = "-"
		}
		rows[i] = []string{"`" + s.Target + "`", truncateString(title, 50), s.LastLoaded.Format("2006-01-02 15:04:05")}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Target", "Title", "Last loaded"},
		Rows:   rows,
	})
	md.PlainText("")
}

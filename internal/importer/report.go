package importer

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Report holds the outcome counters of one import run.
type Report struct {
	Created         int
	Updated         int
	Replaced        int
	SkippedStatus   int
	SkippedPolicy   int
	Unmapped        int
	Failed          int
	Published       int
	FilesDownloaded int
}

func NewReport() Report {
	return Report{}
}

// Imported is the number of items that reached the store.
func (r *Report) Imported() int {
	return r.Created + r.Updated + r.Replaced
}

// Render writes the run summary as a table.
func (r *Report) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Result", "Count"})
	t.AppendRows([]table.Row{
		{"Created", r.Created},
		{"Updated", r.Updated},
		{"Replaced", r.Replaced},
		{"Skipped (status)", r.SkippedStatus},
		{"Skipped (policy)", r.SkippedPolicy},
		{"Unmapped", r.Unmapped},
		{"Failed", r.Failed},
		{"Published", r.Published},
		{"Files downloaded", r.FilesDownloaded},
	})
	t.AppendFooter(table.Row{"Imported", r.Imported()})
	t.Render()
}

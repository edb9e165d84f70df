package codec

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"linkwatch/internal/domain"
)

// TableCodec renders a snapshot as a terminal table
type TableCodec struct {
	colors bool
}

// NewTableCodec creates a table codec without colors
func NewTableCodec() *TableCodec {
	return &TableCodec{}
}

// WithColors enables colored status cells
func (c *TableCodec) WithColors(on bool) *TableCodec {
	c.colors = on
	return c
}

// Format returns the codec format identifier
func (c *TableCodec) Format() string {
	return "table"
}

// ContentType returns the HTTP media type
func (c *TableCodec) ContentType() string {
	return "text/plain; charset=utf-8"
}

// Export renders the snapshot followed by a summary line
func (c *TableCodec) Export(snapshot *Snapshot, w io.Writer) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"Edge", "Subnet", "Status"})
	for _, e := range snapshot.Edges {
		t.AppendRow(table.Row{e.A + "-" + e.B, e.Subnet, c.status(e.Status)})
	}
	t.Render()

	_, err := fmt.Fprintf(w, "\nSummary: %d up, %d down, %d unknown (Total: %d edges)\n",
		snapshot.Counts.Up, snapshot.Counts.Down, snapshot.Counts.Unknown, len(snapshot.Edges))
	return err
}

func (c *TableCodec) status(s domain.LinkStatus) string {
	if !c.colors {
		return string(s)
	}
	switch s {
	case domain.LinkStatusUp:
		return text.FgGreen.Sprint(s)
	case domain.LinkStatusDown:
		return text.FgRed.Sprint(s)
	default:
		return text.FgHiBlack.Sprint(s)
	}
}

package cli

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// Borderless ASCII tables, with columns separated by whitespace only.
var tableRendition = tw.Rendition{
	Borders: tw.BorderNone,
	Symbols: tw.NewSymbols(tw.StyleASCII),
	Settings: tw.Settings{
		Lines: tw.Lines{
			ShowHeaderLine: tw.Off,
			ShowFooterLine: tw.Off,
			ShowTop:        tw.Off,
			ShowBottom:     tw.Off,
		},
		Separators: tw.Separators{
			ShowHeader:     tw.Off,
			ShowFooter:     tw.Off,
			BetweenRows:    tw.Off,
			BetweenColumns: tw.Off,
		},
	},
}

var tableConfig = tablewriter.Config{
	Header: tw.CellConfig{
		Alignment: tw.CellAlignment{Global: tw.AlignLeft},
	},
	Row: tw.CellConfig{
		// Session comments can be long, but IDs and dates must stay intact.
		Formatting:   tw.CellFormatting{AutoWrap: tw.WrapTruncate},
		Alignment:    tw.CellAlignment{Global: tw.AlignLeft},
		ColMaxWidths: tw.CellWidth{Global: 60},
	},
}

func renderTable(header []string, data [][]string, w io.Writer) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewBlueprint(tableRendition)),
		tablewriter.WithConfig(tableConfig),
	)

	table.Header(header)
	if err := table.Bulk(data); err != nil {
		return fmt.Errorf("failed adding table rows: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed rendering table: %w", err)
	}

	return nil
}

package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Generator renders admin stats exports; an interface so handlers can be
// tested with a stub.
type Generator interface {
	GenerateStats(data StatsData) ([]byte, error)
}

type StatsData struct {
	GeneratedAt time.Time
	BotName     string
	TotalUsers  int
	BannedUsers int
	TotalGroups int
	TopCommands []CommandCount
}

type CommandCount struct {
	Name  string
	Count int
}

type ReportGenerator struct{}

func NewReportGenerator() *ReportGenerator {
	return &ReportGenerator{}
}

func (g *ReportGenerator) GenerateStats(data StatsData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("%s stats", data.BotName), false)
	pdf.SetAuthor(data.BotName, false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Bot Statistics", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 7, data.GeneratedAt.Format("02 Jan 2006 15:04 MST"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	line := func(label string, value string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(60, 8, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 8, value, "", 1, "L", false, 0, "")
	}
	line("Total users", fmt.Sprintf("%d", data.TotalUsers))
	line("Banned users", fmt.Sprintf("%d", data.BannedUsers))
	line("Total groups", fmt.Sprintf("%d", data.TotalGroups))

	if len(data.TopCommands) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 9, "Top commands", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		for _, c := range data.TopCommands {
			pdf.CellFormat(0, 7, fmt.Sprintf("%s: %d", c.Name, c.Count), "", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render stats pdf: %w", err)
	}
	return buf.Bytes(), nil
}

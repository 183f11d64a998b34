package outfmt

import (
	"github.com/kestcalc/kestcalc/kest"
)

type OutputType int

const (
	Ledger OutputType = iota
	Summary
)

type ReportWriter interface {
	PrintRenderTable(outType OutputType, name string, tableModel *kest.RenderTable) error
}

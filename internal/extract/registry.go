package extract

import (
	"github.com/mvp-joe/formulax/internal/document"
	"github.com/mvp-joe/formulax/internal/document/csvdoc"
	"github.com/mvp-joe/formulax/internal/document/ods"
	"github.com/mvp-joe/formulax/internal/document/xlsx"
)

// DefaultRegistry returns a registry with every built-in format loader.
func DefaultRegistry() *document.Registry {
	r := document.NewRegistry()
	r.Register(".xlsx", xlsx.New())
	r.Register(".xlsm", xlsx.New())
	r.Register(".ods", ods.New())
	r.Register(".csv", csvdoc.New())
	return r
}

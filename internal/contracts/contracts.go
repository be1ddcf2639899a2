package contracts

import (
	"strings"

	"github.com/kingrea/retorno/internal/roster"
)

// Contract describes what a roster workbook is expected to carry. Missing
// columns are reported but never block a load.
type Contract struct {
	// ExpectedColumns lists column groups; each group is satisfied by any
	// one of its names.
	ExpectedColumns [][]string
}

var rosterContract = Contract{
	ExpectedColumns: [][]string{
		{roster.ColumnCode, roster.ColumnCodeAlt},
		{roster.ColumnName, roster.ColumnNameAlt},
		{roster.ColumnPhone},
	},
}

// RosterContract returns the contract the triage roster expects.
func RosterContract() Contract {
	return rosterContract
}

// Describe lists the expected columns, alternatives joined with "/".
func (c Contract) Describe() string {
	groups := make([]string, 0, len(c.ExpectedColumns))
	for _, group := range c.ExpectedColumns {
		groups = append(groups, strings.Join(group, "/"))
	}
	return strings.Join(groups, ", ")
}

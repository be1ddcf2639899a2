package triage

import (
	"fmt"

	"github.com/kingrea/retorno/internal/codec"
	"github.com/kingrea/retorno/internal/roster"
)

// encodeRoster encodes every record, whatever its status, into a workbook.
func encodeRoster(store *roster.Store, c *codec.Codec) ([]byte, error) {
	if store == nil || c == nil {
		return nil, fmt.Errorf("triage: export needs a store and a codec")
	}
	blob, err := c.Encode(store.Sheet())
	if err != nil {
		return nil, fmt.Errorf("triage: export: %w", err)
	}
	return blob, nil
}

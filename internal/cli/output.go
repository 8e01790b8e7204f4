package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tidwall/pretty"
)

// writeJSON prints v as indented JSON
func writeJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = w.Write(pretty.Pretty(data))
	return err
}

package main

import (
	"encoding/json"
	"reflect"

	"github.com/spf13/cobra"
)

// printJSON writes v to stdout as indented JSON for --json mode. Post bodies
// and feed URLs are printed without HTML escaping, and an empty listing
// prints as [] rather than null.
func printJSON(cmd *cobra.Command, v any) error {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice && rv.IsNil() {
		v = []struct{}{}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

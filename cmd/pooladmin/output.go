package main

import (
	"encoding/json"
	"fmt"
	"io"

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/pkg/errors"
)

// printResult writes v as indented JSON, filtered through the JMESPath
// expression when one is given.
func printResult(w io.Writer, v any, query string) error {
	if query != "" {
		compiled, err := jmespath.Compile(query)
		if err != nil {
			return errors.Wrapf(err, "invalid --query %q", query)
		}
		generic, err := toGeneric(v)
		if err != nil {
			return err
		}
		if v, err = compiled.Search(generic); err != nil {
			return errors.Wrapf(err, "evaluate --query %q", query)
		}
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode output")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// toGeneric round-trips typed values through JSON so the query sees the wire
// field names.
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode output")
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, "decode output")
	}
	return out, nil
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/danmuck/schemakit/internal/jsonld"
	"github.com/danmuck/schemakit/internal/schema"
	"github.com/danmuck/schemakit/internal/validation"
)

var errInvalid = errors.New("schema is invalid")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file|->",
		Short: "Validate a schema payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := readRecord(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %s %q\n", rec.Type, rec.Name)
			return nil
		},
	}
}

func newRenderCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "render <file|->",
		Short: "Print the JSON-LD script fragment for a schema payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := readRecord(cmd, args[0])
			if err != nil {
				return err
			}
			doc, err := jsonld.BuildDocument(rec)
			if err != nil {
				return err
			}
			out, err := jsonld.Serialize(doc)
			if err != nil {
				return err
			}
			if check {
				if err := roundTrip(doc, out); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "verify the fragment parses back to the built document")
	return cmd
}

// readRecord validates the payload at path ("-" for stdin) and prints every
// violation on failure.
func readRecord(cmd *cobra.Command, path string) (schema.Record, error) {
	var (
		body []byte
		err  error
	)
	if path == "-" {
		body, err = io.ReadAll(cmd.InOrStdin())
	} else {
		body, err = os.ReadFile(path)
	}
	if err != nil {
		return schema.Record{}, fmt.Errorf("read %s: %w", path, err)
	}
	rec, vs := validation.ValidateRecord(body)
	if len(vs) > 0 {
		for _, v := range vs {
			fmt.Fprintln(cmd.OutOrStdout(), v.String())
		}
		return schema.Record{}, fmt.Errorf("%w: %d violation(s)", errInvalid, len(vs))
	}
	return rec, nil
}

func roundTrip(doc any, fragment string) error {
	inner, err := jsonld.Extract(fragment)
	if err != nil {
		return err
	}
	want, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var a, b any
	if err := json.Unmarshal(inner, &a); err != nil {
		return err
	}
	if err := json.Unmarshal(want, &b); err != nil {
		return err
	}
	if !reflect.DeepEqual(a, b) {
		return errors.New("rendered fragment does not match the built document")
	}
	return nil
}

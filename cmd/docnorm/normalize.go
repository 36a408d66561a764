package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/gogotex/docnorm/internal/config"
	"github.com/gogotex/docnorm/internal/document"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"
)

var errInvalidDocument = errors.New("document failed embedded validation")

var normalizeCmd = &cobra.Command{
	Use:   "normalize [input.json|-]",
	Short: "Print the normalized form of a JSON document",
	Long: `Reads a JSON object from a file (or stdin), normalizes it against the schema
of the given collection and prints it as relaxed Extended JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNormalize,
}

var (
	normalizeSchema     string
	normalizeCollection string
	normalizeValidate   bool
)

func init() {
	normalizeCmd.Flags().StringVarP(&normalizeSchema, "schema", "s", "schema.yaml", "Schema file (YAML or JSON)")
	normalizeCmd.Flags().StringVarP(&normalizeCollection, "collection", "c", "", "Collection whose schema applies")
	normalizeCmd.Flags().BoolVar(&normalizeValidate, "validate", false, "Validate embedded documents against their models")
	_ = normalizeCmd.MarkFlagRequired("collection")

	rootCmd.AddCommand(normalizeCmd)
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}

func runNormalize(cmd *cobra.Command, args []string) error {
	cat, err := config.LoadCatalog(normalizeSchema)
	if err != nil {
		return err
	}
	schema, ok := cat.Schemas()[normalizeCollection]
	if !ok {
		return fmt.Errorf("collection %q is not declared in %s", normalizeCollection, normalizeSchema)
	}

	b, err := readInput(cmd, args)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("input is not a JSON object: %w", err)
	}

	d := document.New(raw, schema)
	out, err := bson.MarshalExtJSONIndent(bson.M(d.Values()), false, false, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if !normalizeValidate {
		return nil
	}
	reg, err := cat.Registry()
	if err != nil {
		return err
	}
	report := d.ValidateSubDocuments(cmd.Context(), document.NewSubDocumentValidator(reg))
	for _, f := range report.Failed() {
		cmd.PrintErrf("%s (%s): %v\n", f.Field, f.Model, f.Err)
	}
	if report.Err() != nil {
		return errInvalidDocument
	}
	return nil
}

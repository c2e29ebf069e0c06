// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roster Contributors

// Command gen-schema generates the account input JSON Schema files.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/roster/roster/internal/account"
)

var schemas = []struct {
	file     string
	generate func() ([]byte, error)
}{
	{"account-create.schema.json", account.GenerateCreateSchema},
	{"account-update.schema.json", account.GenerateUpdateSchema},
}

func main() {
	dir := "schemas"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	for _, s := range schemas {
		schema, err := s.generate()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating %s: %v\n", s.file, err)
			os.Exit(1)
		}

		outPath := filepath.Join(dir, s.file)
		if err := os.WriteFile(outPath, schema, 0o600); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated %s\n", outPath)
	}
}

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/domain"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/schemacheck"
)

var (
	green = color.New(color.FgGreen, color.Bold)
	red   = color.New(color.FgRed, color.Bold)
)

func main() {
	file := flag.String("file", "", "Schema JSON file to validate")
	flag.Parse()

	if *file == "" && flag.NArg() > 0 {
		*file = flag.Arg(0)
	}
	if *file == "" {
		fmt.Println("usage: validate -file <schema.json>")
		os.Exit(2)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		red.Printf("reading %s: %v\n", *file, err)
		os.Exit(1)
	}

	validator, err := schemacheck.NewValidator()
	if err != nil {
		red.Printf("compiling schema validator: %v\n", err)
		os.Exit(1)
	}

	if err := validator.ValidateJSON(data); err != nil {
		red.Printf("✗ %s is not a valid form schema\n", *file)
		fmt.Printf("  %v\n", err)
		os.Exit(1)
	}

	var schema domain.FormSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		red.Printf("parsing %s: %v\n", *file, err)
		os.Exit(1)
	}

	green.Printf("✓ %s is a valid form schema\n", *file)
	fmt.Printf("├── Version: %s\n", schema.Version)
	fmt.Printf("├── Source: %s\n", schema.SourceIdentifier)
	fmt.Printf("├── Steps: %d\n", schema.Metadata.TotalSteps)
	fmt.Printf("└── Fields: %d\n", schema.Statistics.TotalFields)
}

// Command datamodel inspects container files and the schemas that describe
// them.
//
// Usage:
//
//	datamodel info <file>
//	datamodel dump [-format json|yaml] [-schema url] <file>
//	datamodel search [-schema url] <substring>
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	datamodel "github.com/obsforge/datamodel"
	"github.com/obsforge/datamodel/hdu"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "info":
		err = runInfo(os.Args[2:])
	case "dump":
		err = runDump(os.Args[2:])
	case "search":
		err = runSearch(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "datamodel:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: datamodel <info|dump|search> [flags] [args]")
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("info needs one container file")
	}
	list, err := hdu.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	for i, h := range list.All() {
		shape := ""
		if h.Data != nil {
			dims := make([]string, len(h.Data.Shape()))
			for j, d := range h.Data.Shape() {
				dims[j] = fmt.Sprint(d)
			}
			shape = fmt.Sprintf(" %s (%s)", h.Data.DType(), strings.Join(dims, "x"))
		}
		fmt.Printf("%2d  %-10s ver=%d kind=%s%s\n", i, h.Name, h.Ver, h.Kind, shape)
	}
	if primary, ok := list.Lookup("PRIMARY", 0); ok {
		for _, line := range primary.Header.History() {
			fmt.Println("   history:", line)
		}
	}
	return nil
}

func runDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	format := fs.String("format", "yaml", "output format: json or yaml")
	schemaURL := fs.String("schema", datamodel.CoreSchema, "schema to read the file through")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("dump needs one container file")
	}
	m, err := datamodel.Open(fs.Arg(0), *schemaURL, nil)
	if err != nil {
		return err
	}
	defer m.Close()
	if *format == "json" {
		return m.WriteJSON(os.Stdout)
	}
	return m.WriteYAML(os.Stdout)
}

func runSearch(args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	schemaURL := fs.String("schema", datamodel.CoreSchema, "schema to search")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("search needs one substring")
	}
	m, err := datamodel.New(*schemaURL, nil)
	if err != nil {
		return err
	}
	defer m.Close()
	for _, match := range m.SearchSchema(fs.Arg(0)) {
		fmt.Printf("%-40s %s\n", match.Path, match.Description)
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skdltmxn/dotnet-go/dotnet"
)

var dumpFormat string

var dumpCmd = &cobra.Command{
	Use:   "dump <assembly>",
	Short: "Dump all assembly metadata",
	Long: `Dump the resolved metadata of an assembly in structured format.

Supported formats:
  - text: Human-readable text (default)
  - json: JSON format`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpFormat, "format", "f", "text", "output format (text, json)")
}

func runDump(cmd *cobra.Command, args []string) error {
	if dumpFormat != "json" && dumpFormat != "text" {
		return fmt.Errorf("unknown format: %s", dumpFormat)
	}
	m, err := openModule(args[0])
	if err != nil {
		return err
	}
	if dumpFormat == "json" {
		return dumpJSON(m, args[0])
	}
	dumpText(m, args[0])
	return nil
}

type AssemblyDump struct {
	File           string         `json:"file"`
	Module         string         `json:"module"`
	MVID           string         `json:"mvid"`
	RuntimeVersion string         `json:"runtime_version"`
	Assembly       *IdentityDump  `json:"assembly,omitempty"`
	References     []IdentityDump `json:"references"`
	Types          []TypeDump     `json:"types"`
	Resources      []ResourceDump `json:"resources"`
	Warnings       []string       `json:"warnings,omitempty"`
}

type IdentityDump struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Culture string `json:"culture,omitempty"`
}

type TypeDump struct {
	Token   uint32       `json:"token"`
	Name    string       `json:"name"`
	Kind    string       `json:"kind"`
	Base    string       `json:"base,omitempty"`
	Fields  []MemberDump `json:"fields,omitempty"`
	Methods []MemberDump `json:"methods,omitempty"`
	Nested  []string     `json:"nested,omitempty"`
}

type MemberDump struct {
	Token     uint32 `json:"token"`
	Name      string `json:"name"`
	Signature string `json:"signature,omitempty"`
}

type ResourceDump struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Size     int    `json:"size,omitempty"`
}

func dumpJSON(m *dotnet.Module, path string) error {
	dump := &AssemblyDump{
		File:           path,
		Module:         m.Name(),
		MVID:           formatGUID(m.Mvid()),
		RuntimeVersion: m.RuntimeVersion(),
	}

	if a := m.Assembly(); a != nil {
		dump.Assembly = &IdentityDump{Name: a.Name(), Version: a.Version().String(), Culture: a.Culture()}
	}
	for _, r := range m.AssemblyRefs() {
		dump.References = append(dump.References, IdentityDump{Name: r.Name(), Version: r.Version().String(), Culture: r.Culture()})
	}

	for _, t := range m.Types() {
		td := TypeDump{Token: t.Token(), Name: t.FullName(), Kind: typeKind(t)}
		if t.Extends() != nil {
			td.Base = t.Extends().FullName()
		}
		for _, f := range t.Fields() {
			md := MemberDump{Token: f.Token(), Name: f.Name()}
			if f.Signature() != nil {
				md.Signature = f.Signature().String()
			}
			td.Fields = append(td.Fields, md)
		}
		for _, method := range t.Methods() {
			md := MemberDump{Token: method.Token(), Name: method.Name()}
			if method.Signature() != nil {
				md.Signature = method.Signature().String()
			}
			td.Methods = append(td.Methods, md)
		}
		for _, n := range t.NestedClasses() {
			td.Nested = append(td.Nested, n.FullName())
		}
		dump.Types = append(dump.Types, td)
	}

	for _, r := range m.Resources() {
		rd := ResourceDump{Name: r.Name()}
		switch v := r.(type) {
		case *dotnet.LocalResource:
			rd.Location, rd.Size = "embedded", len(v.Data())
		case *dotnet.FileResource:
			rd.Location = "file"
		case *dotnet.AssemblyResource:
			rd.Location = "assembly"
		}
		dump.Resources = append(dump.Resources, rd)
	}

	for _, w := range m.Warnings() {
		dump.Warnings = append(dump.Warnings, w.Error())
	}

	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(dump)
}

func dumpText(m *dotnet.Module, path string) {
	fmt.Fprintln(output, header("Assembly Information"))
	printInfo(m, path)

	fmt.Fprintln(output)
	fmt.Fprintln(output, header("Types"))
	typesKind, typesNamespace, typesLimit = "", "", 0
	printTypes(m)

	fmt.Fprintln(output)
	printRefs(m, "")

	fmt.Fprintln(output)
	fmt.Fprintln(output, header("Resources"))
	printResources(m)

	if len(m.Warnings()) > 0 {
		fmt.Fprintln(output)
		fmt.Fprintln(output, header("Warnings"))
		for _, w := range m.Warnings() {
			fmt.Fprintln(output, paint(warnStyle, w.Error()))
		}
	}
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skdltmxn/dotnet-go/dotnet"
)

var (
	typesKind      string
	typesNamespace string
	typesLimit     int
)

var typesCmd = &cobra.Command{
	Use:   "types <assembly>",
	Short: "List types defined in the assembly",
	Long: `List the TypeDefs of an assembly.

Use --kind to filter by type kind (class, interface, struct, enum, delegate)
and --namespace to filter by namespace prefix.`,
	Args: cobra.ExactArgs(1),
	RunE: runTypes,
}

func init() {
	typesCmd.Flags().StringVarP(&typesKind, "kind", "k", "", "filter by type kind (class, interface, struct, enum, delegate)")
	typesCmd.Flags().StringVar(&typesNamespace, "namespace", "", "filter by namespace prefix")
	typesCmd.Flags().IntVarP(&typesLimit, "limit", "n", 0, "limit number of types shown (0 = unlimited)")
}

func runTypes(cmd *cobra.Command, args []string) error {
	switch strings.ToLower(typesKind) {
	case "", "class", "interface", "struct", "enum", "delegate":
	default:
		return fmt.Errorf("unknown type kind: %s", typesKind)
	}

	m, err := openModule(args[0])
	if err != nil {
		return err
	}
	printTypes(m)
	return nil
}

func printTypes(m *dotnet.Module) {
	fmt.Fprintf(output, "%-10s %-10s %-50s %s\n", "TOKEN", "KIND", "NAME", "BASE")
	fmt.Fprintf(output, "%s\n", strings.Repeat("-", 100))

	count := 0
	for _, t := range m.Types() {
		kind := typeKind(t)
		if typesKind != "" && kind != strings.ToLower(typesKind) {
			continue
		}
		if typesNamespace != "" && !strings.HasPrefix(namespaceOf(t), typesNamespace) {
			continue
		}

		base := "-"
		if t.Extends() != nil {
			base = t.Extends().FullName()
		}
		fmt.Fprintf(output, "%s %-10s %-50s %s\n", tokenStr(t.Token()), kind, paint(nameStyle, t.FullName()), paint(typeStyle, base))

		count++
		if typesLimit > 0 && count >= typesLimit {
			break
		}
	}

	fmt.Fprintf(output, "\nTotal: %d types\n", count)
}

func namespaceOf(t *dotnet.TypeDef) string {
	for t.EnclosingClass() != nil {
		t = t.EnclosingClass()
	}
	return t.Namespace()
}

// typeKind classifies a TypeDef by its flags and base type.
func typeKind(t *dotnet.TypeDef) string {
	if t.IsInterface() {
		return "interface"
	}
	if t.Extends() == nil {
		return "class"
	}
	switch t.Extends().FullName() {
	case "System.Enum":
		return "enum"
	case "System.ValueType":
		if t.FullName() != "System.Enum" {
			return "struct"
		}
	case "System.MulticastDelegate":
		return "delegate"
	}
	return "class"
}

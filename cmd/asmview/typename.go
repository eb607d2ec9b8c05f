package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skdltmxn/dotnet-go/signature"
	"github.com/skdltmxn/dotnet-go/typename"
)

var typenameCmd = &cobra.Command{
	Use:   "typename <name>",
	Short: "Parse a reflection-style type name",
	Long: `Parse a type name as used by reflection and custom attributes and print
its structure, e.g.:
  typename 'System.Collections.Generic.List` + "`" + `1[[System.Int32, mscorlib]][]'`,
	Args: cobra.ExactArgs(1),
	RunE: runTypename,
}

func runTypename(cmd *cobra.Command, args []string) error {
	t, assembly, err := typename.ParseQualified(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(output, "%s\n", paint(typeStyle, t.String()))
	if assembly != "" {
		fmt.Fprintf(output, "assembly: %s\n", assembly)
	}
	printTypeTree(t, 0)
	return nil
}

func printTypeTree(t signature.Type, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v := t.(type) {
	case signature.Primitive:
		fmt.Fprintf(output, "%sprimitive %s\n", indent, v)
	case *signature.ClassType:
		fmt.Fprintf(output, "%sclass %s\n", indent, signature.FullName(v.Ref))
	case *signature.ValueType:
		fmt.Fprintf(output, "%svaluetype %s\n", indent, signature.FullName(v.Ref))
	case *signature.SZArray:
		fmt.Fprintf(output, "%ssz-array\n", indent)
		printTypeTree(v.Elem, depth+1)
	case *signature.ArrayType:
		fmt.Fprintf(output, "%sarray rank %d\n", indent, v.Shape.Rank)
		printTypeTree(v.Elem, depth+1)
	case *signature.Pointer:
		fmt.Fprintf(output, "%spointer\n", indent)
		if v.Elem == nil {
			fmt.Fprintf(output, "%s  void\n", indent)
			return
		}
		printTypeTree(v.Elem, depth+1)
	case *signature.ByRef:
		fmt.Fprintf(output, "%sbyref\n", indent)
		printTypeTree(v.Elem, depth+1)
	case *signature.GenericInst:
		fmt.Fprintf(output, "%sgeneric instance\n", indent)
		printTypeTree(v.Generic, depth+1)
		for _, a := range v.Args {
			printTypeTree(a, depth+1)
		}
	default:
		fmt.Fprintf(output, "%s%s\n", indent, t)
	}
}

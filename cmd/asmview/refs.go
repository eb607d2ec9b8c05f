package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skdltmxn/dotnet-go/dotnet"
)

var refsKind string

var refsCmd = &cobra.Command{
	Use:   "refs <assembly>",
	Short: "List external references",
	Long: `List the assembly, module, type and member references of an assembly.

Use --kind to show only one kind (assembly, module, type, member).`,
	Args: cobra.ExactArgs(1),
	RunE: runRefs,
}

func init() {
	refsCmd.Flags().StringVarP(&refsKind, "kind", "k", "", "show only one reference kind (assembly, module, type, member)")
}

func runRefs(cmd *cobra.Command, args []string) error {
	kind := strings.ToLower(refsKind)
	switch kind {
	case "", "assembly", "module", "type", "member":
	default:
		return fmt.Errorf("unknown reference kind: %s", refsKind)
	}

	m, err := openModule(args[0])
	if err != nil {
		return err
	}
	printRefs(m, kind)
	return nil
}

func printRefs(m *dotnet.Module, kind string) {
	show := func(k string) bool { return kind == "" || kind == k }

	if show("assembly") {
		fmt.Fprintln(output, header("Assembly References"))
		for _, a := range m.AssemblyRefs() {
			fmt.Fprintf(output, "%s %s, Version=%s", tokenStr(a.Token()), paint(nameStyle, a.Name()), a.Version())
			if key := a.PublicKeyOrToken(); len(key) > 0 {
				fmt.Fprintf(output, ", PublicKeyToken=%s", hex.EncodeToString(key))
			}
			fmt.Fprintln(output)
		}
		fmt.Fprintln(output)
	}

	if show("module") {
		fmt.Fprintln(output, header("Module References"))
		for _, r := range m.ModuleRefs() {
			fmt.Fprintf(output, "%s %s\n", tokenStr(r.Token()), r.Name())
		}
		fmt.Fprintln(output)
	}

	if show("type") {
		fmt.Fprintln(output, header("Type References"))
		for _, t := range m.TypeRefs() {
			fmt.Fprintf(output, "%s %-12s %s%s\n", tokenStr(t.Token()), t.ScopeKind(), paint(typeStyle, t.FullName()), scopeSuffix(t))
		}
		fmt.Fprintln(output)
	}

	if show("member") {
		fmt.Fprintln(output, header("Member References"))
		for _, r := range m.MemberRefs() {
			parent := "?"
			if p, ok := r.Parent().(dotnet.TypeReference); ok {
				parent = p.FullName()
			} else if p, ok := r.Parent().(interface{ Name() string }); ok {
				parent = p.Name()
			}
			switch ref := r.(type) {
			case *dotnet.MethodRef:
				fmt.Fprintf(output, "%s method %s::%s\n", tokenStr(ref.Token()), parent, formatMethod(ref.Name(), ref.Signature()))
			case *dotnet.FieldRef:
				typ := "?"
				if ref.Signature() != nil {
					typ = ref.Signature().String()
				}
				fmt.Fprintf(output, "%s field  %s %s::%s\n", tokenStr(ref.Token()), paint(typeStyle, typ), parent, ref.Name())
			}
		}
	}
}

func scopeSuffix(t *dotnet.TypeRef) string {
	switch s := t.Scope().(type) {
	case *dotnet.AssemblyRefInfo:
		return " [" + s.Name() + "]"
	case *dotnet.ModuleRefInfo:
		return " [module " + s.Name() + "]"
	}
	return ""
}

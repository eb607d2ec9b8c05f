package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skdltmxn/dotnet-go/dotnet"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <assembly> <query>",
	Short: "Look up an entity by token or type name",
	Long: `Look up an entity of an assembly.

Query can be:
  - Metadata token: lookup Acme.dll 0x06000001
  - User string token: lookup Acme.dll 0x70000001
  - Type name: lookup Acme.dll Acme.Outer+Inner`,
	Args: cobra.ExactArgs(2),
	RunE: runLookup,
}

func runLookup(cmd *cobra.Command, args []string) error {
	m, err := openModule(args[0])
	if err != nil {
		return err
	}

	query := args[1]
	if strings.HasPrefix(query, "0x") || strings.HasPrefix(query, "0X") {
		return lookupToken(m, query)
	}

	t := m.TypeByName(query)
	if t == nil {
		return fmt.Errorf("type %s not found", query)
	}
	printMembers(t)
	return nil
}

func lookupToken(m *dotnet.Module, query string) error {
	v, err := strconv.ParseUint(query[2:], 16, 32)
	if err != nil {
		return fmt.Errorf("invalid token %s: %w", query, err)
	}
	e, err := m.Lookup(uint32(v))
	if err != nil {
		return err
	}
	describe(e)
	return nil
}

func describe(e dotnet.Entity) {
	fmt.Fprintf(output, "%s ", tokenStr(e.Token()))
	switch v := e.(type) {
	case *dotnet.UserString:
		fmt.Fprintf(output, "string %q\n", v.Value)
	case *dotnet.Module:
		fmt.Fprintf(output, "module %s\n", v.Name())
	case *dotnet.TypeDef:
		fmt.Fprintln(output, "typedef")
		printMembers(v)
	case *dotnet.TypeRef:
		fmt.Fprintf(output, "typeref %s (%s scope)%s\n", v.FullName(), v.ScopeKind(), scopeSuffix(v))
		if r := v.Resolved(); r != nil {
			fmt.Fprintf(output, "  resolves to %s %s\n", tokenStr(r.Token()), r.FullName())
		}
	case *dotnet.TypeSpec:
		fmt.Fprintf(output, "typespec %s\n", v.FullName())
	case *dotnet.MethodDef:
		fmt.Fprintf(output, "method %s\n", formatMethod(methodName(v), v.Signature()))
		for _, p := range v.Params() {
			fmt.Fprintf(output, "  param %d %s\n", p.Sequence(), p.Name())
		}
	case *dotnet.Field:
		owner := ""
		if v.Owner() != nil {
			owner = v.Owner().FullName() + "::"
		}
		fmt.Fprintf(output, "field %s%s\n", owner, v.Name())
	case *dotnet.MethodSpec:
		if v.Method() != nil && v.Signature() != nil {
			fmt.Fprintf(output, "methodspec %s %s\n", v.Method().Name(), v.Signature())
		} else {
			fmt.Fprintln(output, "methodspec ?")
		}
	case dotnet.MemberRef:
		fmt.Fprintf(output, "memberref %s\n", v.Name())
	case *dotnet.AssemblyRefInfo:
		fmt.Fprintf(output, "assemblyref %s %s\n", v.Name(), v.Version())
	case *dotnet.CustomAttribute:
		name := "?"
		if t := v.AttributeType(); t != nil {
			name = t.FullName()
		}
		fmt.Fprintf(output, "custom attribute %s (%d bytes)\n", name, len(v.Value()))
	case interface{ Name() string }:
		fmt.Fprintf(output, "%T %s\n", v, v.Name())
	default:
		fmt.Fprintf(output, "%T\n", v)
	}
}

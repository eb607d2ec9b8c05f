package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skdltmxn/dotnet-go/dotnet"
	"github.com/skdltmxn/dotnet-go/signature"
)

var membersAttributes bool

var membersCmd = &cobra.Command{
	Use:   "members <assembly> <type>",
	Short: "List the members of a type",
	Long: `List the fields, methods, properties and events of a type.

The type is given by its full name, using '+' for nested types:
  members Acme.dll Acme.Widget
  members Acme.dll Acme.Outer+Inner`,
	Args: cobra.ExactArgs(2),
	RunE: runMembers,
}

func init() {
	membersCmd.Flags().BoolVarP(&membersAttributes, "attributes", "a", false, "show custom attributes")
}

func runMembers(cmd *cobra.Command, args []string) error {
	m, err := openModule(args[0])
	if err != nil {
		return err
	}
	t := m.TypeByName(args[1])
	if t == nil {
		return fmt.Errorf("type %s not found", args[1])
	}
	printMembers(t)
	return nil
}

func printMembers(t *dotnet.TypeDef) {
	fmt.Fprintf(output, "%s %s\n", tokenStr(t.Token()), paint(nameStyle, t.FullName()))
	if t.Extends() != nil {
		fmt.Fprintf(output, "  extends %s\n", paint(typeStyle, t.Extends().FullName()))
	}
	for _, impl := range t.Interfaces() {
		if impl.Interface() != nil {
			fmt.Fprintf(output, "  implements %s\n", paint(typeStyle, impl.Interface().FullName()))
		}
	}
	for _, gp := range t.GenericParams() {
		fmt.Fprintf(output, "  generic %d %s\n", gp.Number(), gp.Name())
	}
	if l := t.Layout(); l != nil {
		fmt.Fprintf(output, "  layout pack=%d size=%d\n", l.PackingSize, l.ClassSize)
	}
	printAttributes("  ", t)

	for _, f := range t.Fields() {
		typ := "?"
		if f.Signature() != nil {
			typ = f.Signature().String()
		}
		fmt.Fprintf(output, "  %s field    %s %s", tokenStr(f.Token()), paint(typeStyle, typ), f.Name())
		if off, ok := f.Offset(); ok {
			fmt.Fprintf(output, " @%d", off)
		}
		fmt.Fprintln(output)
		printAttributes("      ", f)
	}

	for _, md := range t.Methods() {
		fmt.Fprintf(output, "  %s method   %s\n", tokenStr(md.Token()), formatMethod(md.Name(), md.Signature()))
		if im := md.ImplMap(); im != nil && im.Scope != nil {
			fmt.Fprintf(output, "      pinvoke %s!%s\n", im.Scope.Name(), im.ImportName)
		}
		printAttributes("      ", md)
	}

	for _, p := range t.Properties() {
		typ := "?"
		if p.Signature() != nil {
			typ = p.Signature().String()
		}
		fmt.Fprintf(output, "  %s property %s %s\n", tokenStr(p.Token()), paint(typeStyle, typ), p.Name())
		printAttributes("      ", p)
	}

	for _, e := range t.Events() {
		typ := "?"
		if e.EventType() != nil {
			typ = e.EventType().FullName()
		}
		fmt.Fprintf(output, "  %s event    %s %s\n", tokenStr(e.Token()), paint(typeStyle, typ), e.Name())
		printAttributes("      ", e)
	}

	for _, n := range t.NestedClasses() {
		fmt.Fprintf(output, "  %s nested   %s\n", tokenStr(n.Token()), n.FullName())
	}
}

// formatMethod renders a method with its parameter list inserted after the
// name.
func formatMethod(name string, sig *signature.MethodSig) string {
	if sig == nil {
		return paint(nameStyle, name) + " " + paint(warnStyle, "<malformed signature>")
	}
	s := paint(typeStyle, sig.Return.String()) + " " + paint(nameStyle, name) + "("
	for i := range sig.Params {
		if i > 0 {
			s += ", "
		}
		s += sig.Params[i].String()
	}
	return s + ")"
}

func printAttributes(indent string, owner dotnet.CustomAttributeOwner) {
	if !membersAttributes {
		return
	}
	for _, ca := range owner.CustomAttributes() {
		name := "?"
		if t := ca.AttributeType(); t != nil {
			name = t.FullName()
		}
		fmt.Fprintf(output, "%s[%s] (%d bytes)\n", indent, paint(typeStyle, name), len(ca.Value()))
	}
}

package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skdltmxn/dotnet-go/dotnet"
)

var infoCmd = &cobra.Command{
	Use:   "info <assembly>",
	Short: "Display assembly information",
	Long:  `Display the assembly identity, module identity, runtime version and table statistics.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	m, err := openModule(args[0])
	if err != nil {
		return err
	}
	printInfo(m, args[0])
	return nil
}

func printInfo(m *dotnet.Module, path string) {
	fmt.Fprintf(output, "File: %s\n", path)
	fmt.Fprintf(output, "Module: %s\n", paint(nameStyle, m.Name()))
	fmt.Fprintf(output, "MVID: %s\n", formatGUID(m.Mvid()))
	fmt.Fprintf(output, "Runtime Version: %s\n", m.RuntimeVersion())
	fmt.Fprintf(output, "CLI Flags: 0x%08X\n", m.CLIFlags())

	if a := m.Assembly(); a != nil {
		fmt.Fprintf(output, "Assembly: %s\n", paint(nameStyle, a.Name()))
		fmt.Fprintf(output, "Version: %s\n", a.Version())
		culture := a.Culture()
		if culture == "" {
			culture = "neutral"
		}
		fmt.Fprintf(output, "Culture: %s\n", culture)
		fmt.Fprintf(output, "Hash Algorithm: 0x%04X\n", a.HashAlgID())
		if key := a.PublicKey(); len(key) > 0 {
			fmt.Fprintf(output, "Public Key: %s\n", hex.EncodeToString(key))
		}
	} else {
		fmt.Fprintln(output, "Assembly: <none, module only>")
	}

	switch ep := m.EntryPoint().(type) {
	case *dotnet.MethodDef:
		fmt.Fprintf(output, "Entry Point: %s %s\n", tokenStr(ep.Token()), methodName(ep))
	case *dotnet.FileReference:
		fmt.Fprintf(output, "Entry Point: %s file %s\n", tokenStr(ep.Token()), ep.Name())
	}

	fmt.Fprintf(output, "Types: %d\n", len(m.Types()))
	fmt.Fprintf(output, "Methods: %d\n", len(m.Methods()))
	fmt.Fprintf(output, "Fields: %d\n", len(m.Fields()))
	fmt.Fprintf(output, "Type References: %d\n", len(m.TypeRefs()))
	fmt.Fprintf(output, "Member References: %d\n", len(m.MemberRefs()))
	fmt.Fprintf(output, "Assembly References: %d\n", len(m.AssemblyRefs()))
	fmt.Fprintf(output, "Custom Attributes: %d\n", len(m.AllCustomAttributes()))
	fmt.Fprintf(output, "Resources: %d\n", len(m.Resources()))
	if n := len(m.Warnings()); n > 0 {
		fmt.Fprintf(output, "Warnings: %s\n", paint(warnStyle, fmt.Sprint(n)))
	}
}

func formatGUID(guid [16]byte) string {
	return fmt.Sprintf("{%08X-%04X-%04X-%02X%02X-%02X%02X%02X%02X%02X%02X}",
		uint32(guid[0])|uint32(guid[1])<<8|uint32(guid[2])<<16|uint32(guid[3])<<24,
		uint16(guid[4])|uint16(guid[5])<<8,
		uint16(guid[6])|uint16(guid[7])<<8,
		guid[8], guid[9],
		guid[10], guid[11], guid[12], guid[13], guid[14], guid[15])
}

func methodName(md *dotnet.MethodDef) string {
	if md.Owner() == nil {
		return md.Name()
	}
	return md.Owner().FullName() + "::" + md.Name()
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/skdltmxn/dotnet-go/dotnet"
)

var resourcesExtract string

var resourcesCmd = &cobra.Command{
	Use:   "resources <assembly>",
	Short: "List manifest resources",
	Long: `List the manifest resources of an assembly.

Use --extract to write an embedded resource to a file.`,
	Args: cobra.ExactArgs(1),
	RunE: runResources,
}

func init() {
	resourcesCmd.Flags().StringVarP(&resourcesExtract, "extract", "x", "", "write the named embedded resource to a file of the same name")
}

func runResources(cmd *cobra.Command, args []string) error {
	m, err := openModule(args[0])
	if err != nil {
		return err
	}

	if resourcesExtract != "" {
		for _, r := range m.Resources() {
			if local, ok := r.(*dotnet.LocalResource); ok && r.Name() == resourcesExtract {
				return os.WriteFile(resourcesExtract, local.Data(), 0o644)
			}
		}
		return fmt.Errorf("embedded resource %s not found", resourcesExtract)
	}

	printResources(m)
	return nil
}

func printResources(m *dotnet.Module) {
	fmt.Fprintf(output, "%-10s %-10s %-8s %s\n", "TOKEN", "LOCATION", "SIZE", "NAME")
	for _, r := range m.Resources() {
		var location, size string
		switch v := r.(type) {
		case *dotnet.LocalResource:
			location, size = "embedded", fmt.Sprint(len(v.Data()))
		case *dotnet.FileResource:
			location, size = "file", "-"
			if v.File() != nil {
				location = "file:" + v.File().Name()
			}
		case *dotnet.AssemblyResource:
			location, size = "assembly", "-"
			if v.Assembly() != nil {
				location = "assembly:" + v.Assembly().Name()
			}
		}
		fmt.Fprintf(output, "%s %-10s %-8s %s\n", tokenStr(r.Token()), location, size, paint(nameStyle, r.Name()))
	}
	fmt.Fprintf(output, "\nTotal: %d resources\n", len(m.Resources()))
}

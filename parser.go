package hybridmod

import (
	"fmt"
	"os"

	"github.com/bazelbuild/buildtools/build"

	"github.com/albertocavalcante/go-hybridmod/internal/buildutil"
	"github.com/albertocavalcante/go-hybridmod/version"
)

// DescriptorFileName is the file a descriptor is stored in by the local and
// remote catalogs.
const DescriptorFileName = "MODULE.hybrid"

// ParseDescriptorFile reads and parses a MODULE.hybrid file from disk.
func ParseDescriptorFile(filename string) (*ModuleDescriptor, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read descriptor file: %w", err)
	}
	return parseDescriptor(filename, data)
}

// ParseDescriptorContent parses the content of a MODULE.hybrid file.
//
// The file is Starlark syntax made of top-level calls:
//
//	module(name = "app", version = "1.0", main_class = "app.Main")
//	requires(name = "lib", version = "2.0", transitive = True)
//	requires(name = "platform.base", static = True)
//	exports(package = "app.api")
//	exports(package = "app.spi", to = ["lib"])
//	packages("app.internal")
//
// Duplicate requires and exports are kept as written; Validate reports them.
func ParseDescriptorContent(content string) (*ModuleDescriptor, error) {
	return parseDescriptor(DescriptorFileName, []byte(content))
}

func parseDescriptor(filename string, data []byte) (*ModuleDescriptor, error) {
	f, err := build.ParseModule(filename, data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	d := &ModuleDescriptor{}
	seenModule := false
	for _, stmt := range f.Stmt {
		call, ok := stmt.(*build.CallExpr)
		if !ok {
			continue
		}

		fn := buildutil.FuncName(call)
		line := buildutil.Line(call)
		switch fn {
		case "module":
			if seenModule {
				return nil, fmt.Errorf("%s:%d: module() declared more than once", filename, line)
			}
			seenModule = true
			d.Name = buildutil.String(call, "name")
			d.Version = version.Parse(buildutil.String(call, "version"))
			d.MainClass = buildutil.String(call, "main_class")

		case "requires":
			name := buildutil.String(call, "name")
			if name == "" {
				return nil, fmt.Errorf("%s:%d: requires() needs a name", filename, line)
			}
			var mods Modifier
			if buildutil.Bool(call, "transitive") {
				mods |= Transitive
			}
			if buildutil.Bool(call, "static") {
				mods |= Static
			}
			d.Requires = append(d.Requires, Requirement{
				Name:            name,
				CompiledVersion: version.Parse(buildutil.String(call, "version")),
				Modifiers:       mods,
			})

		case "exports":
			pkg := buildutil.String(call, "package")
			if pkg == "" {
				pkg = buildutil.String(call, "")
			}
			if pkg == "" {
				return nil, fmt.Errorf("%s:%d: exports() needs a package", filename, line)
			}
			d.Exports = append(d.Exports, Export{
				Package: pkg,
				Targets: buildutil.StringList(call, "to"),
			})

		case "packages":
			d.Packages = append(d.Packages, buildutil.PositionalStrings(call, 0)...)

		default:
			return nil, fmt.Errorf("%s:%d: unknown directive %q", filename, line, fn)
		}
	}

	if !seenModule {
		return nil, fmt.Errorf("%s: missing module() declaration", filename)
	}
	if d.Name == "" {
		return nil, fmt.Errorf("%s: module() needs a name", filename)
	}
	return d, nil
}

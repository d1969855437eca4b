package hybridmod

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/albertocavalcante/go-hybridmod/version"
)

// ManifestCatalog is a MemoryCatalog loaded from a single YAML document:
//
//	modules:
//	  - name: app
//	    version: "1.0"
//	    main_class: app.Main
//	    requires:
//	      - {name: lib, version: "2.0", transitive: true}
//	      - {name: util}
//	    exports:
//	      - {package: app.api}
//	      - {package: app.spi, to: [lib]}
//	    packages: [app.internal]
//	platform:
//	  - name: platform.base
//	    exports:
//	      - {package: platform.lang}
type ManifestCatalog struct {
	*MemoryCatalog
	source string
}

type manifestDocument struct {
	Modules  []manifestModule `yaml:"modules"`
	Platform []manifestModule `yaml:"platform"`
}

type manifestModule struct {
	Name      string                `yaml:"name"`
	Version   string                `yaml:"version"`
	MainClass string                `yaml:"main_class"`
	Requires  []manifestRequirement `yaml:"requires"`
	Exports   []manifestExport      `yaml:"exports"`
	Packages  []string              `yaml:"packages"`
}

type manifestRequirement struct {
	Name       string `yaml:"name"`
	Version    string `yaml:"version"`
	Transitive bool   `yaml:"transitive"`
	Static     bool   `yaml:"static"`
}

type manifestExport struct {
	Package string   `yaml:"package"`
	To      []string `yaml:"to"`
}

// LoadManifest reads a YAML manifest catalog from path.
func LoadManifest(path string) (*ManifestCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	c, err := parseManifest(path, data)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ParseManifest parses a YAML manifest catalog. Unknown fields and a
// module listed twice at the same version are errors.
func ParseManifest(data []byte) (*ManifestCatalog, error) {
	return parseManifest("manifest", data)
}

func parseManifest(source string, data []byte) (*ManifestCatalog, error) {
	var doc manifestDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse manifest %s: %w", source, err)
	}

	c := &ManifestCatalog{MemoryCatalog: NewMemoryCatalog(), source: source}
	seen := make(map[string]bool)
	for i, m := range doc.Modules {
		d, err := m.descriptor()
		if err != nil {
			return nil, fmt.Errorf("manifest %s: modules[%d]: %w", source, i, err)
		}
		key := d.ID().String()
		if seen[key] {
			return nil, fmt.Errorf("manifest %s: module %s listed more than once", source, key)
		}
		seen[key] = true
		c.Add(d)
	}
	for i, m := range doc.Platform {
		d, err := m.descriptor()
		if err != nil {
			return nil, fmt.Errorf("manifest %s: platform[%d]: %w", source, i, err)
		}
		if seen["platform:"+d.Name] {
			return nil, fmt.Errorf("manifest %s: platform module %s listed more than once", source, d.Name)
		}
		seen["platform:"+d.Name] = true
		c.AddPlatform(d)
	}
	return c, nil
}

// Source returns the path the manifest was loaded from.
func (c *ManifestCatalog) Source() string { return c.source }

func (m manifestModule) descriptor() (*ModuleDescriptor, error) {
	if m.Name == "" {
		return nil, errors.New("missing name")
	}
	d := &ModuleDescriptor{
		Name:      m.Name,
		Version:   version.Parse(m.Version),
		MainClass: m.MainClass,
		Packages:  m.Packages,
	}
	for _, r := range m.Requires {
		if r.Name == "" {
			return nil, fmt.Errorf("module %s: requirement without name", m.Name)
		}
		var mods Modifier
		if r.Transitive {
			mods |= Transitive
		}
		if r.Static {
			mods |= Static
		}
		d.Requires = append(d.Requires, Requirement{
			Name:            r.Name,
			CompiledVersion: version.Parse(r.Version),
			Modifiers:       mods,
		})
	}
	for _, e := range m.Exports {
		if e.Package == "" {
			return nil, fmt.Errorf("module %s: export without package", m.Name)
		}
		d.Exports = append(d.Exports, Export{Package: e.Package, Targets: e.To})
	}
	return d, nil
}

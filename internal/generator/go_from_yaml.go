package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"sort"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"

	"github.com/faciam-dev/gadmin/pkg/viewmodel"
	"github.com/faciam-dev/gadmin/pkg/viewmodel/codec"
)

type GoFromYAMLOptions struct {
	Package string
	// Entities limits the output to the named entities; empty means all.
	Entities []string
}

// GenerateGoFromYAML writes one tagged struct per entity of an entity file.
// Feeding the output back to GenerateYAMLFromGo yields the same fields.
func GenerateGoFromYAML(data []byte, opts GoFromYAMLOptions) ([]byte, error) {
	entities, err := codec.ReadEntities(data)
	if err != nil {
		return nil, err
	}
	want := map[string]bool{}
	for _, n := range opts.Entities {
		want[n] = true
	}
	var body bytes.Buffer
	imports := map[string]bool{}
	found := 0
	for _, e := range entities {
		if len(want) > 0 && !want[e.Name] {
			continue
		}
		found++
		fmt.Fprintf(&body, "type %s struct {\n", strcase.ToCamel(inflection.Singular(e.Name)))
		for _, f := range e.Fields {
			goType, ok := StorageToGo[baseStorage(f.StorageType)]
			if !ok {
				goType = "string"
			}
			switch {
			case strings.HasPrefix(goType, "time."):
				imports["time"] = true
			case strings.HasPrefix(goType, "uuid."):
				imports["github.com/google/uuid"] = true
			}
			if f.IsOption {
				goType = "*" + goType
			}
			fmt.Fprintf(&body, "\t%s %s `%s:%s`\n", strcase.ToCamel(f.Name), goType, TagKey, strconv.Quote(tagFor(f, f.Name == e.Display)))
		}
		body.WriteString("}\n\n")
	}
	if len(want) > 0 && found != len(want) {
		return nil, fmt.Errorf("entities %v: not all found", opts.Entities)
	}

	var out bytes.Buffer
	fmt.Fprintf(&out, "// Code generated by adminctl gen go. DO NOT EDIT.\n\npackage %s\n\n", opts.Package)
	if len(imports) > 0 {
		paths := make([]string, 0, len(imports))
		for p := range imports {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		out.WriteString("import (\n")
		for _, p := range paths {
			fmt.Fprintf(&out, "\t%q\n", p)
		}
		out.WriteString(")\n\n")
	}
	out.Write(body.Bytes())
	return format.Source(out.Bytes())
}

func baseStorage(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	return t
}

// tagFor renders the options of f in the generator's tag syntax. Nullable is
// carried by the pointer type and not repeated.
func tagFor(f viewmodel.FieldDescriptor, display bool) string {
	parts := []string{f.Name}
	flag := func(on bool, name string) {
		if on {
			parts = append(parts, name)
		}
	}
	value := func(v, name string) {
		if v != "" {
			parts = append(parts, name+"="+v)
		}
	}
	flag(f.PrimaryKey, "primary_key")
	flag(f.Searchable, "searchable")
	flag(f.NotEmpty, "not_empty")
	flag(f.ListHideColumn, "hide")
	flag(f.TenantRef, "tenant")
	flag(f.TextArea, "textarea")
	flag(f.FileUpload, "file")
	flag(f.Sanitize, "sanitize")
	flag(display, "display")
	value(f.Label, "label")
	value(f.HTMLInputType, "input")
	value(f.SelectList, "select_list")
	value(f.ForeignKey, "foreign_key")
	value(f.ListRegexMask, "mask")
	if f.ListSortPosition != 0 {
		parts = append(parts, "sort="+strconv.Itoa(f.ListSortPosition))
	}
	return strings.Join(parts, ",")
}

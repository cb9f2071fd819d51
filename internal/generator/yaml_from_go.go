package generator

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"

	"github.com/faciam-dev/gadmin/pkg/viewmodel"
	"github.com/faciam-dev/gadmin/pkg/viewmodel/codec"
)

// TagKey is the struct tag read by the generator, e.g.
// `admin:"title,searchable,not_empty,sort=2"`.
const TagKey = "admin"

type YAMLFromGoOptions struct {
	Srcs     []string
	Merge    bool
	Existing []byte
}

func goTypeToStorage(t string) (storage string, pointer bool, ok bool) {
	pointer = strings.HasPrefix(t, "*")
	storage, ok = GoToStorage[strings.TrimPrefix(t, "*")]
	if strings.HasPrefix(t, "sql.Null") {
		pointer = true
	}
	return storage, pointer, ok
}

// parseFile appends an entity for every struct in file with at least one
// tagged field.
func parseFile(file string, out *[]codec.Entity) error {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, file, nil, parser.ParseComments)
	if err != nil {
		return err
	}
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok {
				continue
			}
			e, err := entityFromStruct(ts.Name.Name, st)
			if err != nil {
				return fmt.Errorf("%s: %s: %w", file, ts.Name.Name, err)
			}
			if len(e.Fields) > 0 {
				*out = append(*out, e)
			}
		}
	}
	return nil
}

func entityFromStruct(name string, st *ast.StructType) (codec.Entity, error) {
	e := codec.Entity{Name: strcase.ToSnake(inflection.Plural(name))}
	for _, fld := range st.Fields.List {
		if fld.Tag == nil || len(fld.Names) == 0 {
			continue
		}
		raw, err := strconv.Unquote(fld.Tag.Value)
		if err != nil {
			return e, err
		}
		tag, ok := reflect.StructTag(raw).Lookup(TagKey)
		if !ok || tag == "-" {
			continue
		}
		goType := exprString(fld.Type)
		storage, nullable, ok := goTypeToStorage(goType)
		if !ok {
			return e, fmt.Errorf("field %s: unsupported type %s", fld.Names[0].Name, goType)
		}
		fd := viewmodel.FieldDescriptor{StorageType: storage, IsOption: nullable}
		display, err := applyTag(&fd, tag)
		if err != nil {
			return e, fmt.Errorf("field %s: %w", fld.Names[0].Name, err)
		}
		if fd.Name == "" {
			fd.Name = strcase.ToSnake(fld.Names[0].Name)
		}
		if display {
			e.Display = fd.Name
		}
		e.Fields = append(e.Fields, fd)
	}
	return e, nil
}

// applyTag reads the column name and options of a tag into fd. It reports
// whether the field is marked as the display field.
func applyTag(fd *viewmodel.FieldDescriptor, tag string) (display bool, err error) {
	parts := strings.Split(tag, ",")
	fd.Name = strings.TrimSpace(parts[0])
	for _, p := range parts[1:] {
		key, val, _ := strings.Cut(strings.TrimSpace(p), "=")
		switch key {
		case "":
		case "primary_key", "pk":
			fd.PrimaryKey = true
		case "searchable":
			fd.Searchable = true
		case "not_empty":
			fd.NotEmpty = true
		case "nullable":
			fd.IsOption = true
		case "hide":
			fd.ListHideColumn = true
		case "tenant":
			fd.TenantRef = true
		case "textarea":
			fd.TextArea = true
		case "file":
			fd.FileUpload = true
		case "sanitize":
			fd.Sanitize = true
		case "display":
			display = true
		case "label":
			fd.Label = val
		case "input":
			fd.HTMLInputType = val
		case "select_list":
			fd.SelectList = val
		case "foreign_key", "fk":
			fd.ForeignKey = val
		case "mask":
			fd.ListRegexMask = val
		case "sort":
			n, err := strconv.Atoi(val)
			if err != nil {
				return false, fmt.Errorf("sort=%q: %w", val, err)
			}
			fd.ListSortPosition = n
		default:
			return false, fmt.Errorf("unknown option %q", key)
		}
	}
	return display, nil
}

func exprString(e ast.Expr) string {
	switch t := e.(type) {
	case *ast.StarExpr:
		return "*" + exprString(t.X)
	case *ast.SelectorExpr:
		return exprString(t.X) + "." + t.Sel.Name
	case *ast.Ident:
		return t.Name
	default:
		return ""
	}
}

// GenerateYAMLFromGo reads the structs in the files matched by opts.Srcs and
// encodes them as an entity file. With Merge, entities of the existing file
// that are not generated again are kept.
func GenerateYAMLFromGo(opts YAMLFromGoOptions) ([]byte, error) {
	var entities []codec.Entity
	for _, src := range opts.Srcs {
		matches, err := filepath.Glob(src)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if err := parseFile(m, &entities); err != nil {
				return nil, err
			}
		}
	}
	if opts.Merge && len(opts.Existing) > 0 {
		existing, err := codec.ReadEntities(opts.Existing)
		if err != nil {
			return nil, err
		}
		entities = mergeEntities(existing, entities)
	}
	for _, e := range entities {
		if _, err := e.Definition(); err != nil {
			return nil, err
		}
	}
	return codec.EncodeYAML(entities)
}

func mergeEntities(old, generated []codec.Entity) []codec.Entity {
	mp := make(map[string]codec.Entity, len(old)+len(generated))
	for _, e := range old {
		mp[e.Name] = e
	}
	for _, e := range generated {
		if prev, ok := mp[e.Name]; ok {
			e.Table = prev.Table
			e.Access = prev.Access
			e.Filters = prev.Filters
			if e.Display == "" {
				e.Display = prev.Display
			}
		}
		mp[e.Name] = e
	}
	names := make([]string, 0, len(mp))
	for n := range mp {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]codec.Entity, 0, len(names))
	for _, n := range names {
		out = append(out, mp[n])
	}
	return out
}

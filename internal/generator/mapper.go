package generator

// GoToStorage maps Go field types to entity storage types. Pointer types
// additionally make the field nullable.
var GoToStorage = map[string]string{
	"string":          "string",
	"int":             "int64",
	"int32":           "int32",
	"int64":           "int64",
	"uint":            "uint64",
	"uint32":          "uint32",
	"uint64":          "uint64",
	"float32":         "float32",
	"float64":         "float64",
	"bool":            "bool",
	"time.Time":       "datetime",
	"uuid.UUID":       "uuid",
	"sql.NullString":  "string",
	"sql.NullInt64":   "int64",
	"sql.NullBool":    "bool",
	"sql.NullFloat64": "float64",
	"sql.NullTime":    "datetime",
}

// StorageToGo maps storage types back to Go types for generated structs.
var StorageToGo = map[string]string{
	"string":   "string",
	"text":     "string",
	"varchar":  "string",
	"int32":    "int32",
	"int":      "int64",
	"int64":    "int64",
	"bigint":   "int64",
	"uint32":   "uint32",
	"uint64":   "uint64",
	"float32":  "float32",
	"float64":  "float64",
	"double":   "float64",
	"decimal":  "float64",
	"bool":     "bool",
	"boolean":  "bool",
	"date":     "time.Time",
	"datetime": "time.Time",
	"time":     "string",
	"uuid":     "uuid.UUID",
}

package client

import "time"

// Field describes one column of an entity.
type Field struct {
	Name         string `json:"name"`
	Label        string `json:"label"`
	FieldType    string `json:"fieldType"`
	InputType    string `json:"inputType"`
	Nullable     bool   `json:"nullable"`
	PrimaryKey   bool   `json:"primaryKey,omitempty"`
	Searchable   bool   `json:"searchable,omitempty"`
	Hidden       bool   `json:"hidden,omitempty"`
	Editable     bool   `json:"editable"`
	SelectList   string `json:"selectList,omitempty"`
	ForeignKey   string `json:"foreignKey,omitempty"`
	SortPosition int    `json:"sortPosition"`
}

// Entity is a registered entity as reported by the server.
type Entity struct {
	Name        string  `json:"name"`
	PrimaryKey  string  `json:"primaryKey"`
	Display     string  `json:"display,omitempty"`
	TenantAware bool    `json:"tenantAware"`
	ShowSearch  bool    `json:"showSearch"`
	Fields      []Field `json:"fields"`
}

// Record is one record with its raw values and resolved foreign key labels.
type Record struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"displayName,omitempty"`
	Values      map[string]string `json:"values"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// Page is one page of a record list.
type Page struct {
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	Total      int64    `json:"total"`
	TotalPages int64    `json:"totalPages"`
	Records    []Record `json:"records"`
}

// ListOptions are the query parameters of List and Export.
type ListOptions struct {
	Page      int
	PageSize  int
	Search    string
	SortBy    string
	SortOrder string
	Filters   map[string]string
}

// DeleteManyResult reports the outcome of a bulk delete per id.
type DeleteManyResult struct {
	Deleted []string          `json:"deleted"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// Token is an issued access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

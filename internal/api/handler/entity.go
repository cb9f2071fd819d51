package handler

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/faciam-dev/gadmin/internal/api/schema"
	apierr "github.com/faciam-dev/gadmin/internal/huma"
	"github.com/faciam-dev/gadmin/internal/logger"
	"github.com/faciam-dev/gadmin/pkg/admin"
	"github.com/faciam-dev/gadmin/pkg/filestore"
	"github.com/faciam-dev/gadmin/pkg/session"
	"github.com/faciam-dev/gadmin/pkg/viewmodel"
)

// EntityHandler exposes the admin service over HTTP.
type EntityHandler struct {
	Svc   *admin.Service
	Files filestore.Store
}

type entityParam struct {
	Entity string `path:"entity"`
}

type recordParam struct {
	Entity string `path:"entity"`
	ID     string `path:"id"`
}

type listEntitiesOutput struct{ Body []schema.Entity }

type listInput struct {
	Entity    string   `path:"entity"`
	Page      int      `query:"page" minimum:"0"`
	PageSize  int      `query:"page_size" minimum:"0"`
	Search    string   `query:"search"`
	SortBy    string   `query:"sort_by"`
	SortOrder string   `query:"sort_order" enum:"asc,desc,"`
	Filter    []string `query:"filter" doc:"name:value pairs"`
}

type listOutput struct{ Body schema.Page }

type recordOutput struct{ Body schema.Record }

type writeInput struct {
	Entity string `path:"entity"`
	Body   map[string]any
}

type editInput struct {
	Entity string `path:"entity"`
	ID     string `path:"id"`
	Body   map[string]any
}

type uploadInput struct {
	Entity  string `path:"entity"`
	ID      string `query:"id" doc:"edit this record instead of creating one"`
	RawBody multipart.Form
}

type deleteManyInput struct {
	Entity string `path:"entity"`
	Body   schema.DeleteMany
}

type deleteManyOutput struct{ Body admin.DeleteManyResult }

type selectListsOutput struct {
	Body map[string][]viewmodel.Option
}

type exportInput struct {
	Entity    string   `path:"entity"`
	Search    string   `query:"search"`
	SortBy    string   `query:"sort_by"`
	SortOrder string   `query:"sort_order" enum:"asc,desc,"`
	Filter    []string `query:"filter"`
}

type exportOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

// RegisterEntities registers the entity routes.
func RegisterEntities(api huma.API, h *EntityHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "listEntities",
		Method:      http.MethodGet,
		Path:        "/v1/entities",
		Summary:     "List entities visible to the caller",
		Tags:        []string{"Entity"},
	}, h.entities)
	huma.Register(api, huma.Operation{
		OperationID: "listRecords",
		Method:      http.MethodGet,
		Path:        "/v1/entities/{entity}/records",
		Summary:     "List records",
		Tags:        []string{"Entity"},
	}, h.list)
	huma.Register(api, huma.Operation{
		OperationID: "getRecord",
		Method:      http.MethodGet,
		Path:        "/v1/entities/{entity}/records/{id}",
		Summary:     "Get record",
		Tags:        []string{"Entity"},
	}, h.get)
	huma.Register(api, huma.Operation{
		OperationID:   "createRecord",
		Method:        http.MethodPost,
		Path:          "/v1/entities/{entity}/records",
		Summary:       "Create record",
		Tags:          []string{"Entity"},
		DefaultStatus: http.StatusCreated,
	}, h.create)
	huma.Register(api, huma.Operation{
		OperationID: "editRecord",
		Method:      http.MethodPut,
		Path:        "/v1/entities/{entity}/records/{id}",
		Summary:     "Edit record",
		Tags:        []string{"Entity"},
	}, h.edit)
	huma.Register(api, huma.Operation{
		OperationID:   "deleteRecord",
		Method:        http.MethodDelete,
		Path:          "/v1/entities/{entity}/records/{id}",
		Summary:       "Delete record",
		Tags:          []string{"Entity"},
		DefaultStatus: http.StatusNoContent,
	}, h.delete)
	huma.Register(api, huma.Operation{
		OperationID: "deleteRecords",
		Method:      http.MethodPost,
		Path:        "/v1/entities/{entity}/records/delete",
		Summary:     "Delete several records",
		Tags:        []string{"Entity"},
	}, h.deleteMany)
	huma.Register(api, huma.Operation{
		OperationID:   "uploadRecord",
		Method:        http.MethodPost,
		Path:          "/v1/entities/{entity}/records/upload",
		Summary:       "Create or edit a record from a multipart form",
		Tags:          []string{"Entity"},
		DefaultStatus: http.StatusCreated,
	}, h.upload)
	huma.Register(api, huma.Operation{
		OperationID: "selectLists",
		Method:      http.MethodGet,
		Path:        "/v1/entities/{entity}/select-lists",
		Summary:     "Options of the entity's select list fields",
		Tags:        []string{"Entity"},
	}, h.selectLists)
	huma.Register(api, huma.Operation{
		OperationID: "exportRecords",
		Method:      http.MethodGet,
		Path:        "/v1/entities/{entity}/export",
		Summary:     "Export records as CSV",
		Tags:        []string{"Entity"},
	}, h.export)
}

func fail(ctx context.Context, err error, m *viewmodel.Model) error {
	sess := session.FromContext(ctx)
	mapped := apierr.FromAdmin(err, m, !sess.Anonymous())
	if se, ok := mapped.(huma.StatusError); ok && se.GetStatus() >= http.StatusInternalServerError {
		logger.L.Error("admin operation failed", "err", err)
	}
	return mapped
}

// parseFilters splits name:value pairs; a pair without a colon is ignored.
func parseFilters(raw []string) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, ":")
		if !ok {
			continue
		}
		out[strings.TrimSpace(name)] = value
	}
	return out
}

func (h *EntityHandler) entities(ctx context.Context, _ *struct{}) (*listEntitiesOutput, error) {
	es := h.Svc.Entities(session.FromContext(ctx))
	out := &listEntitiesOutput{Body: make([]schema.Entity, len(es))}
	for i, e := range es {
		out.Body[i] = schema.FromEntity(e)
	}
	return out, nil
}

func (h *EntityHandler) list(ctx context.Context, in *listInput) (*listOutput, error) {
	sess := session.FromContext(ctx)
	res, err := h.Svc.List(ctx, sess, in.Entity, admin.ListParams{
		Page:      in.Page,
		PageSize:  in.PageSize,
		Search:    in.Search,
		SortBy:    in.SortBy,
		SortOrder: admin.SortOrder(in.SortOrder),
		Filters:   parseFilters(in.Filter),
		Tenant:    sess.Tenant,
	})
	if err != nil {
		return nil, fail(ctx, err, nil)
	}
	return &listOutput{Body: schema.FromList(res)}, nil
}

func (h *EntityHandler) get(ctx context.Context, in *recordParam) (*recordOutput, error) {
	sess := session.FromContext(ctx)
	m, err := h.Svc.Get(ctx, sess, in.Entity, in.ID, sess.Tenant)
	if err != nil {
		return nil, fail(ctx, err, nil)
	}
	return &recordOutput{Body: schema.FromModel(m)}, nil
}

func (h *EntityHandler) create(ctx context.Context, in *writeInput) (*recordOutput, error) {
	sess := session.FromContext(ctx)
	m := viewmodel.FromMap(in.Body)
	got, err := h.Svc.Create(ctx, sess, in.Entity, m, sess.Tenant)
	if err != nil {
		return nil, fail(ctx, err, m)
	}
	return &recordOutput{Body: schema.FromModel(got)}, nil
}

func (h *EntityHandler) edit(ctx context.Context, in *editInput) (*recordOutput, error) {
	sess := session.FromContext(ctx)
	m := viewmodel.FromMap(in.Body)
	got, err := h.Svc.Edit(ctx, sess, in.Entity, in.ID, m, sess.Tenant)
	if err != nil {
		return nil, fail(ctx, err, m)
	}
	return &recordOutput{Body: schema.FromModel(got)}, nil
}

func (h *EntityHandler) delete(ctx context.Context, in *recordParam) (*struct{}, error) {
	sess := session.FromContext(ctx)
	if _, err := h.Svc.Delete(ctx, sess, in.Entity, in.ID, sess.Tenant); err != nil {
		return nil, fail(ctx, err, nil)
	}
	return nil, nil
}

// deleteMany always answers 200 with the per id outcome unless the caller
// may not touch the entity at all.
func (h *EntityHandler) deleteMany(ctx context.Context, in *deleteManyInput) (*deleteManyOutput, error) {
	sess := session.FromContext(ctx)
	res, err := h.Svc.DeleteMany(ctx, sess, in.Entity, in.Body.IDs, sess.Tenant)
	if err != nil && res.Deleted == nil && res.Failed == nil {
		return nil, fail(ctx, err, nil)
	}
	if err != nil {
		logger.L.Warn("partial bulk delete", "entity", in.Entity, "failed", len(res.Failed), "err", err)
	}
	return &deleteManyOutput{Body: res}, nil
}

func (h *EntityHandler) upload(ctx context.Context, in *uploadInput) (*recordOutput, error) {
	sess := session.FromContext(ctx)
	e, err := h.Svc.Registry().Entity(in.Entity)
	if err != nil {
		return nil, fail(ctx, err, nil)
	}
	if !h.Svc.Allowed(sess, e) {
		return nil, fail(ctx, admin.ErrUnauthorized, nil)
	}
	var fs viewmodel.FileSaver
	if h.Files != nil {
		fs = h.Files
	}
	m, saved, err := viewmodel.FromMultipart(ctx, e.VM, &in.RawBody, fs)
	if err != nil {
		h.discard(ctx, in.Entity, saved)
		return nil, huma.Error400BadRequest(err.Error())
	}
	var got *viewmodel.Model
	if in.ID != "" {
		got, err = h.Svc.Edit(ctx, sess, in.Entity, in.ID, m, sess.Tenant)
	} else {
		got, err = h.Svc.Create(ctx, sess, in.Entity, m, sess.Tenant)
	}
	if err != nil {
		h.discard(ctx, in.Entity, saved)
		return nil, fail(ctx, err, m)
	}
	return &recordOutput{Body: schema.FromModel(got)}, nil
}

// discard removes files stored for a request whose record was not written.
func (h *EntityHandler) discard(ctx context.Context, entity string, names []string) {
	for _, n := range names {
		if err := h.Files.Delete(ctx, entity, n); err != nil {
			logger.L.Warn("discard upload", "entity", entity, "file", n, "err", err)
		}
	}
}

func (h *EntityHandler) selectLists(ctx context.Context, in *entityParam) (*selectListsOutput, error) {
	sess := session.FromContext(ctx)
	lists, err := h.Svc.SelectLists(ctx, sess, in.Entity, sess.Tenant)
	if err != nil {
		return nil, fail(ctx, err, nil)
	}
	return &selectListsOutput{Body: lists}, nil
}

func (h *EntityHandler) export(ctx context.Context, in *exportInput) (*exportOutput, error) {
	sess := session.FromContext(ctx)
	var buf bytes.Buffer
	err := h.Svc.ExportCSV(ctx, sess, in.Entity, admin.ListParams{
		Search:    in.Search,
		SortBy:    in.SortBy,
		SortOrder: admin.SortOrder(in.SortOrder),
		Filters:   parseFilters(in.Filter),
		Tenant:    sess.Tenant,
	}, &buf)
	if err != nil {
		return nil, fail(ctx, err, nil)
	}
	return &exportOutput{
		ContentType:        "text/csv; charset=utf-8",
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", in.Entity+".csv"),
		Body:               buf.Bytes(),
	}, nil
}

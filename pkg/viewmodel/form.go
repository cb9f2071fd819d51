package viewmodel

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
)

// FileSaver persists an uploaded file for an entity and returns the name it
// was stored under.
type FileSaver interface {
	Save(ctx context.Context, entity, filename string, r io.Reader) (string, error)
}

// FromMultipart builds a model from a multipart form. Files posted for file
// upload fields are saved through fs and the stored name becomes the field
// value. Saved names are returned so callers can remove them when the
// operation fails afterwards.
func FromMultipart(ctx context.Context, vm *ViewModel, form *multipart.Form, fs FileSaver) (*Model, []string, error) {
	m := FromValues(form.Value)
	// file fields only ever take names saved below
	for _, name := range vm.FileFields() {
		delete(m.Values, name)
	}
	var saved []string
	for _, name := range vm.FileFields() {
		files := form.File[name]
		if len(files) == 0 || files[0].Filename == "" {
			continue
		}
		if fs == nil {
			return nil, saved, fmt.Errorf("upload %s: no file store configured", name)
		}
		stored, err := saveFile(ctx, vm.EntityName, files[0], fs)
		if err != nil {
			return nil, saved, fmt.Errorf("upload %s: %w", name, err)
		}
		saved = append(saved, stored)
		m.Values[name] = stored
		m.MarkUploaded(name)
	}
	return m, saved, nil
}

func saveFile(ctx context.Context, entity string, fh *multipart.FileHeader, fs FileSaver) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return fs.Save(ctx, entity, filepath.Base(fh.Filename), f)
}

package admin

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"github.com/faciam-dev/gadmin/pkg/metrics"
	"github.com/faciam-dev/gadmin/pkg/session"
	pkgutil "github.com/faciam-dev/gadmin/pkg/util"
)

// ExportCSV writes every record matching p as CSV, walking the pages in
// order. The header holds the labels of the visible list columns; cells hold
// the same display values as the list (resolved labels, masks applied).
func (s *Service) ExportCSV(ctx context.Context, sess session.Session, entity string, p ListParams, w io.Writer) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveOp(entity, "export", err, start) }()
	e, err := s.entity(sess, entity)
	if err != nil {
		return err
	}
	fields := e.VM.ListFields()
	cw := csv.NewWriter(w)
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Label
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	p.PageSize = pkgutil.MaxLimit
	for page := 1; ; page++ {
		p.Page = page
		res, err := s.list(ctx, e, p)
		if err != nil {
			return err
		}
		for _, m := range res.Records {
			row := make([]string, len(fields))
			for i, f := range fields {
				row[i] = m.Display(f.Name)
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		if int64(page) >= res.TotalPages {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

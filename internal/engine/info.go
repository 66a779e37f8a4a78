package engine

import (
	"context"
	"errors"
	"time"

	"github.com/bootphon/h5features-sub000/arraystore"
	"github.com/bootphon/h5features-sub000/data"
	"github.com/bootphon/h5features-sub000/format"
	"github.com/bootphon/h5features-sub000/internal/h5err"
)

// ColumnInfo summarizes the storage of one column.
type ColumnInfo struct {
	Name        string
	Rows        int64
	Chunks      int
	StoredBytes int64
}

// Info summarizes a group.
type Info struct {
	Name        string
	Version     format.Version
	Desc        data.Descriptor
	Compression string
	Codec       string
	Items       int
	Rows        int64
	Generation  uint64
	CommittedAt time.Time
	Columns     []ColumnInfo
}

// Describe returns the summary of a loaded group.
func (r *Resolver) Describe() Info {
	st := r.st
	info := Info{
		Name:        r.g.Name(),
		Version:     st.Schema.Version,
		Desc:        st.Schema.Desc,
		Compression: st.Schema.Compression.String(),
		Codec:       st.Schema.Codec.Name(),
		Items:       st.Index.Len(),
		Rows:        st.Rows(),
		Generation:  r.g.Generation(),
		CommittedAt: r.g.CommittedAt(),
	}
	for _, name := range r.g.Columns() {
		col, err := r.g.Column(name)
		if err != nil {
			continue
		}
		info.Columns = append(info.Columns, ColumnInfo{
			Name:        name,
			Rows:        col.Rows(),
			Chunks:      len(col.Chunks()),
			StoredBytes: col.StoredBytes(),
		})
	}
	return info
}

// Verify checks the boundary index against the stored columns, the
// properties list against the items and every chunk checksum. All failures
// are returned joined.
func Verify(ctx context.Context, g *arraystore.Group) error {
	var errs []error
	if r, err := NewResolver(ctx, g); err != nil {
		errs = append(errs, err)
	} else {
		if _, err := r.st.properties(ctx, g); err != nil {
			errs = append(errs, err)
		}
		if err := r.checkTimes(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := g.Verify(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// checkTimes reports the first row whose time label decreases inside an
// item. A decrease is legal only on the first row of an item.
func (r *Resolver) checkTimes(ctx context.Context) error {
	rows := r.st.Index.Rows()
	if rows == 0 {
		return nil
	}
	times, err := r.times(ctx, 0, rows-1)
	if err != nil {
		return err
	}
	for i := 1; i < times.Rows(); i++ {
		if times.Start(i) >= times.Start(i-1) && times.End(i) >= times.End(i-1) {
			continue
		}
		k, ok := r.st.Index.Locate(int64(i))
		if !ok {
			return h5err.New(h5err.KindCorrupt, "engine.Verify", "row %d lies past the boundary index", i)
		}
		if start, _ := r.st.Index.RowRange(k); start == int64(i) {
			continue
		}
		return h5err.New(h5err.KindCorrupt, "engine.Verify",
			"group %q: times of item %q decrease at row %d", r.g.Name(), r.st.Items[k], i)
	}
	return nil
}

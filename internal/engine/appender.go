package engine

import (
	"context"
	"log/slog"

	"github.com/bootphon/h5features-sub000/arraystore"
	"github.com/bootphon/h5features-sub000/codec"
	"github.com/bootphon/h5features-sub000/data"
	"github.com/bootphon/h5features-sub000/format"
	"github.com/bootphon/h5features-sub000/internal/compress"
	"github.com/bootphon/h5features-sub000/internal/h5err"
)

// Phase is the lifecycle state of a group as seen by an Appender.
type Phase int

const (
	// Absent groups do not exist yet.
	Absent Phase = iota
	// Initialized groups have a schema but no items.
	Initialized
	// Populated groups hold at least one item.
	Populated
)

func (p Phase) String() string {
	switch p {
	case Absent:
		return "absent"
	case Initialized:
		return "initialized"
	default:
		return "populated"
	}
}

// Options configures an Appender.
type Options struct {
	// Version is checked against existing groups and used for new ones. The
	// empty version adopts the group's version, or format.Default.
	Version     format.Version
	Compression compress.Algorithm
	Codec       codec.Codec
	ChunkRows   int
	// Overwrite discards the group's content on the first successful append.
	Overwrite bool
	Logger    *slog.Logger
}

// Result describes a committed append.
type Result struct {
	Items      int   // new items
	Rows       int64 // rows written
	Continued  bool  // the first item extended the last stored item
	Generation uint64
}

// Appender writes batches to one group. It is not safe for concurrent use.
type Appender struct {
	c         *arraystore.Container
	name      string
	opts      Options
	g         *arraystore.Group
	st        *State
	overwrite bool
}

// NewAppender opens the group name of c for appending. The group is created
// by the first append if it does not exist.
func NewAppender(ctx context.Context, c *arraystore.Container, name string, opts Options) (*Appender, error) {
	if err := arraystore.ValidGroupName(name); err != nil {
		return nil, h5err.Wrap(err, h5err.KindInvalidArgument, "engine.NewAppender", "group %q", name)
	}
	if opts.Version != "" && !opts.Version.Supported() {
		_, err := format.Parse(string(opts.Version))
		return nil, err
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	a := &Appender{c: c, name: name, opts: opts, overwrite: opts.Overwrite}
	ok, err := c.HasGroup(ctx, name)
	if err != nil {
		return nil, err
	}
	if ok {
		if a.g, err = c.Group(ctx, name); err != nil {
			return nil, err
		}
		if a.st, err = loadState(ctx, a.g); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Phase returns the lifecycle state of the group.
func (a *Appender) Phase() Phase {
	switch {
	case a.g == nil:
		return Absent
	case a.st.Index.Len() == 0:
		return Initialized
	default:
		return Populated
	}
}

// State returns the committed state, or nil if the group is absent.
func (a *Appender) State() *State { return a.st }

// Append validates b and commits it to the group. On error the group is
// unchanged.
func (a *Appender) Append(ctx context.Context, b data.Batch) (Result, error) {
	desc, err := b.Validate(data.CheckFull)
	if err != nil {
		return Result{}, err
	}
	overwrite := a.overwrite && a.g != nil

	var base *State
	if a.g == nil || overwrite {
		version := a.opts.Version
		if overwrite {
			if version != "" {
				if err := version.CheckCompatible(a.st.Schema.Version); err != nil {
					return Result{}, err
				}
			}
			version = a.st.Schema.Version
		}
		if version == "" {
			version = format.Default
		}
		schema := Schema{
			Version:     version,
			Desc:        desc,
			Compression: a.opts.Compression,
			Codec:       a.opts.Codec,
			ChunkRows:   a.opts.ChunkRows,
		}
		if err := checkLayout(version, desc); err != nil {
			return Result{}, err
		}
		base = newState(schema)
	} else {
		if a.opts.Version != "" {
			if err := a.opts.Version.CheckCompatible(a.st.Schema.Version); err != nil {
				return Result{}, err
			}
		}
		if err := checkLayout(a.st.Schema.Version, desc); err != nil {
			return Result{}, err
		}
		if err := b.CheckAppendable(a.st.Schema.Desc); err != nil {
			return Result{}, err
		}
		base = a.st
	}

	cont, err := a.continuation(ctx, base, b)
	if err != nil {
		return Result{}, err
	}

	// a new group is only published by the commit of its first batch
	g, created := a.g, a.g == nil
	if created {
		if g, err = a.c.NewGroup(ctx, a.name); err != nil {
			return Result{}, err
		}
	}

	next, res, err := a.commit(ctx, g, base, b, cont, created || overwrite)
	if err != nil {
		a.logError("append failed", err)
		return Result{}, err
	}
	if created {
		a.logInfo("group created", "version", base.Schema.Version.String())
	}
	a.g, a.st = g, next
	a.overwrite = false
	a.logInfo("append committed", "items", res.Items, "rows", res.Rows,
		"continued", res.Continued, "overwrite", overwrite, "generation", res.Generation)
	return res, nil
}

// continuation applies the continuation rule: a batch may share exactly one
// name with the group, and only if it is the batch's first item and the
// group's last item.
func (a *Appender) continuation(ctx context.Context, base *State, b data.Batch) (bool, error) {
	const op = "engine.Append"
	var clashes []string
	for _, name := range b.Items {
		if _, ok := base.ordinals[name]; ok {
			clashes = append(clashes, name)
		}
	}
	if len(clashes) == 0 {
		return false, nil
	}
	last := base.Items[len(base.Items)-1]
	if len(clashes) > 1 || b.Items[0] != last {
		return false, h5err.Invalid(op, "items %q already exist in group %q", clashes, a.name)
	}

	tail, err := a.lastTime(ctx, base)
	if err != nil {
		return false, err
	}
	if !b.Times[0].Follows(tail) {
		return false, h5err.Invalid(op, "item %q: continued times start before the stored times end", last)
	}

	if b.Properties != nil && len(b.Properties[0]) > 0 {
		stored, err := base.properties(ctx, a.g)
		if err != nil {
			return false, err
		}
		given, err := data.NormalizeProperties(b.Properties[0])
		if err != nil {
			return false, err
		}
		if !stored[len(stored)-1].Equal(given) {
			return false, h5err.Invalid(op, "item %q: properties differ from the stored ones", last)
		}
	}
	return true, nil
}

// lastTime returns the time label of the last stored row.
func (a *Appender) lastTime(ctx context.Context, base *State) (data.Times, error) {
	col, err := a.g.Column(format.TimesColumn)
	if err != nil {
		return data.Times{}, err
	}
	row := base.Rows() - 1
	raw, err := col.ReadRows(ctx, row, row)
	if err != nil {
		return data.Times{}, err
	}
	return data.TimesFromValues(base.Schema.Desc.TimeFormat, decodeFloat64s(raw))
}

// commit stages b on g and publishes it. With reset set, the columns and
// attributes of g are replaced by the schema of base.
func (a *Appender) commit(ctx context.Context, g *arraystore.Group, base *State, b data.Batch, cont, reset bool) (*State, Result, error) {
	next := base.clone()
	counts := b.RowCounts()
	names := b.Items
	firstNew := 0
	if cont {
		if err := next.Index.Extend(counts[0]); err != nil {
			return nil, Result{}, err
		}
		names, counts, firstNew = names[1:], counts[1:], 1
	}
	if _, err := next.Index.Append(counts); err != nil {
		return nil, Result{}, err
	}
	for _, name := range names {
		next.ordinals[name] = len(next.Items)
		next.Items = append(next.Items, name)
	}

	schema := base.Schema
	layout := schema.Version.Layout()
	tx := g.Begin()
	if reset {
		for _, col := range g.Columns() {
			if err := tx.DropColumn(col); err != nil {
				return nil, Result{}, err
			}
		}
		for _, key := range g.BlobAttrs() {
			if err := tx.DeleteAttr(key); err != nil {
				return nil, Result{}, err
			}
		}
		for k, v := range schema.attrs() {
			if err := tx.SetAttr(k, v); err != nil {
				return nil, Result{}, err
			}
		}
	}
	for _, c := range schema.columnSpecs() {
		if reset || !g.HasColumn(c.name) {
			if err := tx.CreateColumn(c.name, c.spec); err != nil {
				return nil, Result{}, err
			}
		}
	}

	var feats, times []byte
	var rows int64
	for i := range b.Items {
		feats = append(feats, b.Features[i].Bytes()...)
		times = encodeFloat64s(times, b.Times[i].Values())
		rows += int64(b.Features[i].Rows())
	}
	if err := tx.AppendRows(ctx, format.FeaturesColumn, feats); err != nil {
		return nil, Result{}, err
	}
	if err := tx.AppendRows(ctx, format.TimesColumn, times); err != nil {
		return nil, Result{}, err
	}

	stored := base.Index.Len()
	from := stored
	if cont {
		// the last boundary moves, rewrite it
		from = stored - 1
		if err := tx.Truncate(ctx, layout.IndexColumn, int64(from)); err != nil {
			return nil, Result{}, err
		}
	}
	if err := tx.AppendRows(ctx, layout.IndexColumn, encodeInt64s(nil, next.Index.Last()[from:])); err != nil {
		return nil, Result{}, err
	}
	if err := tx.AppendStrings(ctx, format.ItemsColumn, names); err != nil {
		return nil, Result{}, err
	}

	if schema.Desc.HasProperties {
		list, err := base.properties(ctx, g)
		if err != nil {
			return nil, Result{}, err
		}
		list = append([]data.Properties(nil), list...)
		for i := firstNew; i < b.Len(); i++ {
			var p data.Properties
			if b.Properties != nil {
				if p, err = data.NormalizeProperties(b.Properties[i]); err != nil {
					return nil, Result{}, err
				}
			}
			if p == nil {
				p = data.Properties{}
			}
			list = append(list, p)
		}
		blob, err := data.EncodeProperties(schema.Codec, list)
		if err != nil {
			return nil, Result{}, err
		}
		if err := tx.PutAttr(propertiesBlob, blob); err != nil {
			return nil, Result{}, err
		}
		next.props, next.propsOK = list, true
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, Result{}, err
	}
	return next, Result{
		Items:      len(names),
		Rows:       rows,
		Continued:  cont,
		Generation: g.Generation(),
	}, nil
}

func (a *Appender) logInfo(msg string, args ...any) {
	if a.opts.Logger != nil {
		a.opts.Logger.Info(msg, append([]any{"group", a.name}, args...)...)
	}
}

func (a *Appender) logError(msg string, err error) {
	if a.opts.Logger != nil {
		a.opts.Logger.Error(msg, "group", a.name, "error", err)
	}
}

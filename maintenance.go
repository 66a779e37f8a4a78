package h5features

import (
	"context"
	"errors"

	"github.com/bootphon/h5features-sub000/arraystore"
	"github.com/bootphon/h5features-sub000/internal/engine"
	"github.com/bootphon/h5features-sub000/internal/h5err"
)

// Groups returns the sorted group names of the container at loc.
func Groups(ctx context.Context, loc Location, opts ...Option) ([]string, error) {
	o := buildOptions(opts)
	if o.err != nil {
		return nil, o.err
	}
	c, closer, err := openContainer(ctx, loc, o)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(closer)
	defer c.Close()
	groups, err := c.ListGroups(ctx)
	return groups, translateError(err)
}

// Verify checks group of the container at loc: the boundary index against
// the stored columns, the properties list against the items and the checksum
// of every chunk. An empty group name checks every group. All failures are
// returned joined.
func Verify(ctx context.Context, loc Location, group string, opts ...Option) error {
	o := buildOptions(opts)
	if o.err != nil {
		return o.err
	}
	c, closer, err := openContainer(ctx, loc, o)
	if err != nil {
		return err
	}
	defer closeQuietly(closer)
	defer c.Close()

	groups := []string{group}
	if group == "" {
		if groups, err = c.ListGroups(ctx); err != nil {
			return translateError(err)
		}
	}
	var errs []error
	for _, name := range groups {
		g, err := c.Group(ctx, name)
		if err != nil {
			errs = append(errs, translateError(err))
			continue
		}
		if err := engine.Verify(ctx, g); err != nil {
			o.logger.ErrorContext(ctx, "group verification failed", "group", name, "error", err)
			errs = append(errs, err)
			continue
		}
		o.logger.InfoContext(ctx, "group verified", "group", name, "generation", g.Generation())
	}
	return errors.Join(errs...)
}

// Vacuum deletes the blobs of group that its committed state no longer
// references, such as chunks of interrupted writes. An empty group name
// vacuums every group. It returns the deleted blob names.
func Vacuum(ctx context.Context, loc Location, group string, opts ...Option) ([]string, error) {
	const op = "h5features.Vacuum"
	o := buildOptions(opts)
	if o.err != nil {
		return nil, o.err
	}
	store, closer, err := loc.store(ctx, true)
	if err != nil {
		return nil, translateError(err)
	}
	defer closeQuietly(closer)
	c, err := arraystore.Open(ctx, store, arraystore.ModeWriteAppend, o.containerOptions()...)
	if err != nil {
		return nil, translateError(err)
	}
	defer c.Close()

	groups := []string{group}
	if group == "" {
		if groups, err = c.ListGroups(ctx); err != nil {
			return nil, translateError(err)
		}
	} else if ok, err := c.HasGroup(ctx, group); err != nil {
		return nil, translateError(err)
	} else if !ok {
		return nil, h5err.NotFound(op, "group %q", group)
	}
	var deleted []string
	for _, name := range groups {
		g, err := c.Group(ctx, name)
		if err != nil {
			return deleted, translateError(err)
		}
		d, err := g.Vacuum(ctx)
		deleted = append(deleted, d...)
		if err != nil {
			return deleted, translateError(err)
		}
		o.logger.InfoContext(ctx, "group vacuumed", "group", name, "deleted", len(d))
	}
	return deleted, nil
}

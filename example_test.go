package h5features_test

import (
	"context"
	"fmt"
	"log"

	"github.com/bootphon/h5features-sub000"
	"github.com/bootphon/h5features-sub000/blobstore"
	"github.com/bootphon/h5features-sub000/data"
)

// Example_writeRead demonstrates writing one item and reading a time window.
func Example_writeRead() {
	ctx := context.Background()
	loc := h5features.Remote(blobstore.NewMemoryStore())

	w, err := h5features.NewWriter(ctx, loc, "mfcc")
	if err != nil {
		log.Fatal(err)
	}
	feats, _ := data.NewFeatures([][]float32{{1, 2}, {3, 4}, {5, 6}})
	item, _ := data.NewItem("utt1", feats, data.CenterTimes([]float64{0.5, 1.5, 2.5}), nil)
	if err := w.Write(ctx, item); err != nil {
		log.Fatal(err)
	}
	w.Close()

	r, err := h5features.Open(ctx, loc, "mfcc")
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	got, err := r.Read(ctx, "utt1", h5features.Between(1, 3))
	if err != nil {
		log.Fatal(err)
	}
	rows, _ := data.FeatureRows[float32](got.Features)
	fmt.Println(got.Times.Values(), rows)
	// Output: [1.5 2.5] [[3 4] [5 6]]
}

// Example_continuation demonstrates extending the last stored item.
func Example_continuation() {
	ctx := context.Background()
	loc := h5features.Remote(blobstore.NewMemoryStore())

	w, err := h5features.NewWriter(ctx, loc, "mfcc")
	if err != nil {
		log.Fatal(err)
	}
	defer w.Close()

	for _, t0 := range []float64{0, 2} {
		feats, _ := data.NewFeatures([][]float64{{t0}, {t0 + 1}})
		item, _ := data.NewItem("stream", feats, data.CenterTimes([]float64{t0, t0 + 1}), nil)
		if err := w.Write(ctx, item); err != nil {
			log.Fatal(err)
		}
	}

	r, err := h5features.Open(ctx, loc, "")
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()
	fmt.Println(r.Items(), r.Info().Rows)
	// Output: [stream] 4
}

package main

import (
	"fmt"
	"io"
	"time"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/bootphon/h5features-sub000"
	"github.com/bootphon/h5features-sub000/data"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

type itemDoc struct {
	Name       string         `json:"name" yaml:"name"`
	Dtype      string         `json:"dtype" yaml:"dtype"`
	Dim        int            `json:"dim" yaml:"dim"`
	Times      any            `json:"times" yaml:"times,flow"`
	Features   [][]float64    `json:"features" yaml:"features,flow"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
}

func itemDocOf(it data.Item) itemDoc {
	doc := itemDoc{
		Name:       it.Name,
		Dtype:      it.Features.Dtype().String(),
		Dim:        it.Features.Dim(),
		Features:   it.Features.Float64Rows(),
		Properties: it.Properties,
	}
	if it.Times.Format() == data.TimeInterval {
		pairs := make([][2]float64, it.Times.Rows())
		for i := range pairs {
			pairs[i] = [2]float64{it.Times.Start(i), it.Times.End(i)}
		}
		doc.Times = pairs
	} else {
		doc.Times = it.Times.Values()
	}
	return doc
}

type columnDoc struct {
	Name        string `json:"name" yaml:"name"`
	Rows        int64  `json:"rows" yaml:"rows"`
	Chunks      int    `json:"chunks" yaml:"chunks"`
	StoredBytes int64  `json:"stored_bytes" yaml:"stored_bytes"`
}

type infoDoc struct {
	Group         string      `json:"group" yaml:"group"`
	Version       string      `json:"version" yaml:"version"`
	Dim           int         `json:"dim" yaml:"dim"`
	Dtype         string      `json:"dtype" yaml:"dtype"`
	TimeFormat    string      `json:"time_format" yaml:"time_format"`
	HasProperties bool        `json:"properties" yaml:"properties"`
	Compression   string      `json:"compression" yaml:"compression"`
	Codec         string      `json:"codec" yaml:"codec"`
	Items         int         `json:"items" yaml:"items"`
	Rows          int64       `json:"rows" yaml:"rows"`
	Generation    uint64      `json:"generation" yaml:"generation"`
	CommittedAt   string      `json:"committed_at" yaml:"committed_at"`
	Columns       []columnDoc `json:"columns" yaml:"columns"`
}

func infoDocOf(info h5features.Info) infoDoc {
	doc := infoDoc{
		Group:         info.Name,
		Version:       info.Version.String(),
		Dim:           info.Desc.Dim,
		Dtype:         info.Desc.Dtype.String(),
		TimeFormat:    info.Desc.TimeFormat.String(),
		HasProperties: info.Desc.HasProperties,
		Compression:   info.Compression,
		Codec:         info.Codec,
		Items:         info.Items,
		Rows:          info.Rows,
		Generation:    info.Generation,
		CommittedAt:   info.CommittedAt.UTC().Format(time.RFC3339),
	}
	for _, c := range info.Columns {
		doc.Columns = append(doc.Columns, columnDoc(c))
	}
	return doc
}

func encode(w io.Writer, outFormat string, v any) error {
	switch outFormat {
	case formatJSON:
		enc := gojson.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (json, yaml)", outFormat)
	}
}

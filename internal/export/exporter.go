package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/duckask/duckask/internal/query"
	"github.com/duckask/duckask/internal/storage"
)

var ErrNothingToExport = errors.New("only successful results can be exported")

type Artifact struct {
	Key      string `json:"key"`
	Location string `json:"location"`
	Format   Format `json:"format"`
	Size     int64  `json:"size"`
	Rows     int    `json:"rows"`
}

type Exporter struct {
	store storage.ObjectStore
	now   func() time.Time
}

func NewExporter(store storage.ObjectStore) *Exporter {
	return &Exporter{store: store, now: time.Now}
}

func (e *Exporter) Export(ctx context.Context, result query.Result, format Format, name string) (Artifact, error) {
	if !result.Success {
		return Artifact{}, ErrNothingToExport
	}
	key, err := storage.BuildExportKey(name, string(format), e.now())
	if err != nil {
		return Artifact{}, err
	}
	body, err := Encode(format, result)
	if err != nil {
		return Artifact{}, err
	}

	info, err := e.store.Put(ctx, key, bytes.NewReader(body), int64(len(body)), storage.PutOptions{ContentType: format.ContentType()})
	if err != nil {
		return Artifact{}, fmt.Errorf("store export: %w", err)
	}
	size := info.Size
	if size == 0 {
		size = int64(len(body))
	}
	return Artifact{
		Key:      key,
		Location: e.store.Location(key),
		Format:   format,
		Size:     size,
		Rows:     result.RowCount,
	}, nil
}

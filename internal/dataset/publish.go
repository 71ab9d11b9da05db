package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shopquery/shopquery/internal/schema"
	"github.com/shopquery/shopquery/internal/storage"
)

const parquetContentType = "application/vnd.apache.parquet"

type TableObject struct {
	Name      string `json:"name"`
	Key       string `json:"key"`
	Rows      int64  `json:"rows"`
	SizeBytes int64  `json:"size_bytes"`
}

type Manifest struct {
	Dataset     string        `json:"dataset"`
	Seed        int64         `json:"seed"`
	GeneratedAt time.Time     `json:"generated_at"`
	Tables      []TableObject `json:"tables"`
}

func (m Manifest) Table(name string) (TableObject, bool) {
	for _, table := range m.Tables {
		if table.Name == name {
			return table, true
		}
	}
	return TableObject{}, false
}

type Publisher struct {
	Store    storage.ObjectStore
	Registry *schema.Registry
	Logger   *slog.Logger
}

// Publish writes every table and then the manifest, and removes objects a previous publish left
// under the dataset prefix. Readers only trust the manifest, so a partial publish is never read.
func (p Publisher) Publish(ctx context.Context, name string, seed int64, d Dataset) (Manifest, error) {
	if p.Store == nil {
		return Manifest{}, fmt.Errorf("object store is required")
	}
	if p.Registry == nil {
		return Manifest{}, fmt.Errorf("schema registry is required")
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	encoded, err := d.Encode()
	if err != nil {
		return Manifest{}, err
	}
	byName := make(map[string]EncodedTable, len(encoded))
	for _, table := range encoded {
		byName[table.Name] = table
	}

	manifest := Manifest{Dataset: name, Seed: seed, GeneratedAt: time.Now().UTC()}
	written := map[string]struct{}{}
	for _, tableName := range p.Registry.TableNames() {
		table, ok := byName[tableName]
		if !ok {
			return Manifest{}, fmt.Errorf("dataset has no rows for registry table %q", tableName)
		}
		key, err := storage.DatasetTablePath(name, tableName)
		if err != nil {
			return Manifest{}, err
		}
		info, err := p.Store.Put(ctx, key, bytes.NewReader(table.Data), int64(len(table.Data)), storage.PutOptions{ContentType: parquetContentType})
		if err != nil {
			return Manifest{}, fmt.Errorf("publish table %s: %w", tableName, err)
		}
		written[key] = struct{}{}
		manifest.Tables = append(manifest.Tables, TableObject{Name: tableName, Key: key, Rows: table.Rows, SizeBytes: info.Size})
		logger.InfoContext(ctx, "dataset table published",
			slog.String("dataset", name),
			slog.String("table", tableName),
			slog.Int64("rows", table.Rows),
			slog.String("key", key),
		)
	}

	manifestKey, err := storage.DatasetManifestPath(name)
	if err != nil {
		return Manifest{}, err
	}
	body, err := json.Marshal(manifest)
	if err != nil {
		return Manifest{}, fmt.Errorf("marshal manifest: %w", err)
	}
	if _, err := p.Store.Put(ctx, manifestKey, bytes.NewReader(body), int64(len(body)), storage.PutOptions{ContentType: "application/json"}); err != nil {
		return Manifest{}, fmt.Errorf("publish manifest: %w", err)
	}
	written[manifestKey] = struct{}{}

	if err := p.removeStale(ctx, name, written, logger); err != nil {
		return Manifest{}, err
	}
	return manifest, nil
}

func (p Publisher) removeStale(ctx context.Context, name string, keep map[string]struct{}, logger *slog.Logger) error {
	prefix, err := storage.DatasetPrefix(name)
	if err != nil {
		return err
	}
	objects, err := p.Store.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("list dataset objects: %w", err)
	}
	for _, object := range objects {
		if _, ok := keep[object.Key]; ok {
			continue
		}
		if err := p.Store.Delete(ctx, object.Key); err != nil {
			return fmt.Errorf("remove stale object %s: %w", object.Key, err)
		}
		logger.InfoContext(ctx, "stale dataset object removed", slog.String("key", object.Key))
	}
	return nil
}

func LoadManifest(ctx context.Context, store storage.ObjectStore, name string) (Manifest, error) {
	key, err := storage.DatasetManifestPath(name)
	if err != nil {
		return Manifest{}, err
	}
	reader, err := store.Get(ctx, key)
	if err != nil {
		return Manifest{}, fmt.Errorf("get manifest for dataset %q: %w", name, err)
	}
	defer func() { _ = reader.Close() }()

	body, err := io.ReadAll(reader)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return manifest, nil
}

// Exists reports whether a manifest has been published for the dataset.
func Exists(ctx context.Context, store storage.ObjectStore, name string) (bool, error) {
	key, err := storage.DatasetManifestPath(name)
	if err != nil {
		return false, err
	}
	if _, err := store.Stat(ctx, key); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("stat manifest: %w", err)
	}
	return true, nil
}

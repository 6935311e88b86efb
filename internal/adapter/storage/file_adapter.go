package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/rl1809/stock-tracker/internal/core/domain"
	"github.com/rl1809/stock-tracker/internal/port"
)

const (
	jsonIndent   = "    "
	snapshotMode = 0o644
)

var ErrMalformedSnapshot = errors.New("malformed snapshot")

// FileAdapter keeps each snapshot as a JSON object in its own file; the
// snapshot name is the file path.
type FileAdapter struct{}

func NewFileAdapter() *FileAdapter {
	return &FileAdapter{}
}

func (f *FileAdapter) Load(ctx context.Context, path string) (domain.Snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", port.ErrSnapshotNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return decodeSnapshot(data)
}

func (f *FileAdapter) Save(ctx context.Context, path string, snapshot domain.Snapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, snapshotMode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// encodeSnapshot renders the snapshot as an indented JSON object keyed by
// item, keeping item order.
func encodeSnapshot(snapshot domain.Snapshot) ([]byte, error) {
	om := orderedmap.New[string, int]()
	for _, lvl := range snapshot {
		om.Set(lvl.Item, lvl.Quantity)
	}

	raw, err := json.Marshal(om)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", jsonIndent); err != nil {
		return nil, fmt.Errorf("indent snapshot: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func decodeSnapshot(data []byte) (domain.Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrMalformedSnapshot)
	}

	om := orderedmap.New[string, int]()
	if err := json.Unmarshal(trimmed, om); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	snapshot := make(domain.Snapshot, 0, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		snapshot = append(snapshot, domain.StockLevel{Item: pair.Key, Quantity: pair.Value})
	}
	return snapshot, nil
}

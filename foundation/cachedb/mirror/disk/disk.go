// Package disk implements a durable mirror medium that stores each key in its
// own zstd compressed file on disk. Files are named by the blake3 digest of
// the key and each file carries the key ahead of the data, so keys of any
// length fit within file name limits and can still be listed.
package disk

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cloutcontracts/cloutnet/foundation/cachedb/mirror"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// fileExt is appended to every file written by the medium.
const fileExt = ".zst"

// Disk represents the medium implementation for storing envelopes in their
// own separate files. This implements the mirror.Mirror interface.
type Disk struct {
	folder string
	mu     sync.Mutex
	enc    *zstd.Encoder
	dec    *zstd.Decoder
}

// New constructs a Disk value for use, creating the folder if needed.
func New(folder string) (*Disk, error) {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return nil, fmt.Errorf("creating mirror folder: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("constructing zstd encoder: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("constructing zstd decoder: %w", err)
	}

	d := Disk{
		folder: folder,
		enc:    enc,
		dec:    dec,
	}

	return &d, nil
}

// Close releases the compression resources.
func (d *Disk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dec.Close()
	return d.enc.Close()
}

// Put compresses the key and data and writes them to the file for the key.
// The file is written to a temporary name first and renamed into place.
func (d *Disk) Put(key string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	record := binary.AppendUvarint(nil, uint64(len(key)))
	record = append(record, key...)
	record = append(record, data...)

	compressed := d.enc.EncodeAll(record, nil)

	path := d.getPath(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0600); err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %q: %w", key, err)
	}

	return nil
}

// Get reads and decompresses the file for the key.
func (d *Disk) Get(key string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	stored, data, err := d.read(d.getPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, mirror.ErrNotFound
		}
		return nil, fmt.Errorf("reading %q: %w", key, err)
	}

	if stored != key {
		return nil, mirror.ErrNotFound
	}

	return data, nil
}

// Delete removes the file for the key. Deleting an unknown key is not
// an error.
func (d *Disk) Delete(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.Remove(d.getPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %q: %w", key, err)
	}

	return nil
}

// Keys returns the sorted set of stored keys starting with prefix. Files
// that cannot be read as records are skipped.
func (d *Disk) Keys(prefix string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries, err := os.ReadDir(d.folder)
	if err != nil {
		return nil, fmt.Errorf("listing mirror folder: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}

		key, _, err := d.read(filepath.Join(d.folder, name))
		if err != nil {
			continue
		}

		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	return keys, nil
}

// =============================================================================

// read decompresses the file at path and splits the record into the key
// and the data.
func (d *Disk) read(path string) (string, []byte, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}

	record, err := d.dec.DecodeAll(compressed, nil)
	if err != nil {
		return "", nil, fmt.Errorf("decompressing: %w", err)
	}

	size, n := binary.Uvarint(record)
	if n <= 0 || uint64(len(record)-n) < size {
		return "", nil, errors.New("malformed record header")
	}

	key := string(record[n : n+int(size)])
	data := record[n+int(size):]

	return key, data, nil
}

// getPath forms the path to the specified key. The name is the hex encoded
// blake3 digest of the key, which has a fixed length for any key.
func (d *Disk) getPath(key string) string {
	sum := blake3.Sum256([]byte(key))
	return filepath.Join(d.folder, hex.EncodeToString(sum[:])+fileExt)
}

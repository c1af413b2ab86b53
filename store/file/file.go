// Package file keeps artifacts as plain files, one directory per prefix.
package file

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/juju/errors"

	"github.com/warriorguo/hyperbuild/store"
)

var (
	_ store.Store = &fileStore{}
)

type fileStore struct {
	root string
}

// NewFileStore stores artifacts under root, creating it when needed.
func NewFileStore(root string) (store.Store, error) {
	if root == "" {
		return nil, errors.BadRequestf("artifact dir cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Annotatef(err, "create artifact dir %s", root)
	}
	return &fileStore{root: root}, nil
}

func (f *fileStore) dir(prefix string) string {
	// Clean against "/" so a prefix can never climb above root.
	clean := path.Clean("/" + prefix)
	return filepath.Join(f.root, filepath.FromSlash(clean))
}

func (f *fileStore) file(prefix, key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", errors.BadRequestf("invalid artifact name %q", key)
	}
	return filepath.Join(f.dir(prefix), key), nil
}

func (f *fileStore) Get(ctx context.Context, prefix, key string) ([]byte, error) {
	name, err := f.file(prefix, key)
	if err != nil {
		return nil, errors.Trace(err)
	}
	b, err := os.ReadFile(name)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Annotatef(err, "read %s", name)
	}
	return b, nil
}

func (f *fileStore) Set(ctx context.Context, prefix, key string, value []byte) error {
	name, err := f.file(prefix, key)
	if err != nil {
		return errors.Trace(err)
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return errors.Annotatef(err, "create %s", filepath.Dir(name))
	}

	tmp, err := os.CreateTemp(filepath.Dir(name), "."+key+".*")
	if err != nil {
		return errors.Annotatef(err, "create temp file for %s", name)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return errors.Annotatef(err, "write %s", name)
	}
	if err := tmp.Close(); err != nil {
		return errors.Annotatef(err, "close %s", name)
	}
	return errors.Annotatef(os.Rename(tmp.Name(), name), "rename to %s", name)
}

func (f *fileStore) Remove(ctx context.Context, prefix, key string) error {
	name, err := f.file(prefix, key)
	if err != nil {
		return errors.Trace(err)
	}
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return errors.Annotatef(err, "remove %s", name)
	}
	return nil
}

func (f *fileStore) List(ctx context.Context, prefix string, iterator func(key string) bool) error {
	entries, err := os.ReadDir(f.dir(prefix))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Annotatef(err, "list %s", prefix)
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if !iterator(entry.Name()) {
			break
		}
	}
	return nil
}

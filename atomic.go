package bli

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// writeFileAtomic writes filename through a temporary sibling file that is
// synced and renamed into place, so readers never see a partial file and a
// failed write leaves any previous file untouched.
func writeFileAtomic(filename string, write func(w io.Writer) error) (err error) {
	dir, base := filepath.Split(filename)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "create temp file for %q", filename)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	if err = write(w); err != nil {
		return err
	}
	if err = w.Flush(); err != nil {
		return errors.Wrapf(err, "flush %q", tmpName)
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrapf(err, "fsync %q", tmpName)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %q", tmpName)
	}
	if err = os.Rename(tmpName, filename); err != nil {
		return errors.Wrapf(err, "rename %q to %q", tmpName, filename)
	}
	return nil
}

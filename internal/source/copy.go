package source

import (
	"github.com/pkg/errors"
	"github.com/termie/go-shutil"
)

func copyDir(src, dst string) error {
	if err := shutil.CopyTree(src, dst, nil); err != nil {
		return errors.Wrapf(err, "copying %s to %s", src, dst)
	}
	return nil
}

package archive

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
)

// SourceFile is a file scanned from an input directory for building an archive.
type SourceFile struct {
	Name string // Logical name, slash separated and relative to the scan root
	Path string // Path on disk
	Size int64
}

// ScanFiles walks inputDir and returns every regular file under it, sorted
// by logical name.
func ScanFiles(inputDir string) ([]SourceFile, error) {
	var files []SourceFile

	err := filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(inputDir, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if info.Size() > MaxDataSize {
			return fmt.Errorf("file too large: %s (size %d exceeds %d bytes)", path, info.Size(), int64(MaxDataSize))
		}

		files = append(files, SourceFile{
			Name: NormalizeName(filepath.ToSlash(relPath)),
			Path: path,
			Size: info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

package coord

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// Node is one entry of a local tree mapped to a coordination-service path.
type Node struct {
	Path string
	Data []byte
	Dir  bool
}

// LocalTree walks localRoot and maps every entry below it under dest.
// Parents are listed before their children. The root itself is not included.
func LocalTree(dest, localRoot string) ([]Node, error) {
	info, err := os.Stat(localRoot)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", localRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", localRoot)
	}

	var nodes []Node
	err = filepath.WalkDir(localRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(localRoot, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		n := Node{Path: path.Join(dest, filepath.ToSlash(rel)), Dir: d.IsDir()}
		if !n.Dir {
			n.Data, err = os.ReadFile(p)
			if err != nil {
				return err
			}
		}
		nodes = append(nodes, n)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", localRoot, err)
	}
	return nodes, nil
}

// Parents returns the ancestors of p from the top down, excluding p itself.
func Parents(p string) []string {
	var out []string
	dir := path.Dir(path.Clean(p))
	for dir != "." && dir != "/" {
		out = append([]string{dir}, out...)
		dir = path.Dir(dir)
	}
	return out
}

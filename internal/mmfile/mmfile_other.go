//go:build !unix

package mmfile

import "os"

// Open reads the entire file when mmap is not available.
func Open(path string) (*Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Region{data: data}, nil
}

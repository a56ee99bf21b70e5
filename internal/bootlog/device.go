package bootlog

import (
	"fmt"
	"os"
	"path/filepath"

	"tinygo.org/x/tinyfs"
)

// Flash geometry emulated by FileDevice.
const (
	PageSize   = 256
	BlockSize  = 4096
	BlockCount = 64
)

// FileDevice is a tinyfs block device backed by an image file, for boards
// that have a filesystem instead of raw flash.
type FileDevice struct {
	f *os.File
}

// Compile-time check that FileDevice implements tinyfs.BlockDevice.
var _ tinyfs.BlockDevice = (*FileDevice)(nil)

// OpenFileDevice opens or creates the image at path, sized to the emulated
// geometry. Fresh images read as erased flash.
func OpenFileDevice(path string) (*FileDevice, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("bootlog: create image dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("bootlog: open image: %w", err)
	}
	d := &FileDevice{f: f}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("bootlog: stat image: %w", err)
	}
	if info.Size() != d.Size() {
		if err := d.EraseBlocks(0, BlockCount); err != nil {
			f.Close()
			return nil, err
		}
	}
	return d, nil
}

// Close closes the image file.
func (d *FileDevice) Close() error {
	return d.f.Close()
}

func (d *FileDevice) ReadAt(p []byte, off int64) (int, error) {
	return d.f.ReadAt(p, off)
}

func (d *FileDevice) WriteAt(p []byte, off int64) (int, error) {
	return d.f.WriteAt(p, off)
}

func (d *FileDevice) Size() int64 {
	return BlockSize * BlockCount
}

func (d *FileDevice) WriteBlockSize() int64 {
	return PageSize
}

func (d *FileDevice) EraseBlockSize() int64 {
	return BlockSize
}

// EraseBlocks fills len blocks from start with 0xff.
func (d *FileDevice) EraseBlocks(start, len int64) error {
	erased := make([]byte, BlockSize)
	for i := range erased {
		erased[i] = 0xff
	}
	for b := start; b < start+len; b++ {
		if _, err := d.f.WriteAt(erased, b*BlockSize); err != nil {
			return fmt.Errorf("bootlog: erase block %d: %w", b, err)
		}
	}
	return nil
}

// Package bootlog keeps a small journal across soft-off cycles in a LittleFS
// image: a boot counter and the statistics of the last epoch. Everything
// else the remote knows is lost when it sleeps.
package bootlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"tinygo.org/x/tinyfs"
	"tinygo.org/x/tinyfs/littlefs"

	"github.com/chaz8081/hog-remote/internal/power"
)

// CurrentVersion is the record format version. Records of another version
// are ignored.
const CurrentVersion uint16 = 1

const (
	dir        = "/bootlog"
	bootsFile  = "/bootlog/boots.bin"
	epochFile  = "/bootlog/epoch.bin"
	tempSuffix = ".tmp"
)

// ErrInvalidRecord is returned for short or foreign records.
var ErrInvalidRecord = errors.New("bootlog: invalid record")

// Epoch summarizes one boot-to-sleep cycle.
// Total size: 24 bytes
// Layout:
//
//	[0-1]:   Version (uint16)
//	[2-3]:   Unpairs (uint16)
//	[4-7]:   Boot (uint32)
//	[8-15]:  Reports (uint64)
//	[16-23]: Uptime in milliseconds (uint64)
type Epoch struct {
	Version uint16
	Unpairs uint16
	Boot    uint32
	Reports uint64
	Uptime  time.Duration
}

const epochSize = 24

// MarshalBinary implements encoding.BinaryMarshaler.
func (e *Epoch) MarshalBinary() ([]byte, error) {
	buf := make([]byte, epochSize)
	binary.LittleEndian.PutUint16(buf[0:], e.Version)
	binary.LittleEndian.PutUint16(buf[2:], e.Unpairs)
	binary.LittleEndian.PutUint32(buf[4:], e.Boot)
	binary.LittleEndian.PutUint64(buf[8:], e.Reports)
	binary.LittleEndian.PutUint64(buf[16:], uint64(e.Uptime/time.Millisecond))
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (e *Epoch) UnmarshalBinary(data []byte) error {
	if len(data) < epochSize {
		return ErrInvalidRecord
	}
	e.Version = binary.LittleEndian.Uint16(data[0:])
	e.Unpairs = binary.LittleEndian.Uint16(data[2:])
	e.Boot = binary.LittleEndian.Uint32(data[4:])
	e.Reports = binary.LittleEndian.Uint64(data[8:])
	e.Uptime = time.Duration(binary.LittleEndian.Uint64(data[16:])) * time.Millisecond
	return nil
}

// Journal is the mounted boot log.
type Journal struct {
	fs   *littlefs.LFS
	boot uint32
	last *Epoch
}

// Compile-time check that Journal implements power.Journal.
var _ power.Journal = (*Journal)(nil)

// Open mounts the image on dev, formatting it if it holds no filesystem, and
// counts this boot.
func Open(dev tinyfs.BlockDevice) (*Journal, error) {
	lfs := littlefs.New(dev)
	lfs.Configure(&littlefs.Config{
		CacheSize:     512,
		LookaheadSize: 128,
	})
	if err := lfs.Mount(); err != nil {
		if err := lfs.Format(); err != nil {
			return nil, fmt.Errorf("bootlog: format: %w", err)
		}
		if err := lfs.Mount(); err != nil {
			return nil, fmt.Errorf("bootlog: mount: %w", err)
		}
	}

	j := &Journal{fs: lfs}
	if err := lfs.Mkdir(dir, 0755); err != nil && !isExist(err) {
		lfs.Unmount()
		return nil, fmt.Errorf("bootlog: mkdir: %w", err)
	}

	var boots [4]byte
	if err := j.read(bootsFile, boots[:]); err == nil {
		j.boot = binary.LittleEndian.Uint32(boots[:])
	}
	j.boot++
	binary.LittleEndian.PutUint32(boots[:], j.boot)
	if err := j.atomicWrite(bootsFile, boots[:]); err != nil {
		lfs.Unmount()
		return nil, err
	}

	buf := make([]byte, epochSize)
	if err := j.read(epochFile, buf); err == nil {
		var e Epoch
		if e.UnmarshalBinary(buf) == nil && e.Version == CurrentVersion {
			j.last = &e
		}
	}
	return j, nil
}

// Close unmounts the image.
func (j *Journal) Close() error {
	return j.fs.Unmount()
}

// Boot returns the number of this boot, starting at 1.
func (j *Journal) Boot() uint32 {
	return j.boot
}

// Last returns the epoch recorded before the previous soft off.
func (j *Journal) Last() (Epoch, bool) {
	if j.last == nil {
		return Epoch{}, false
	}
	return *j.last, true
}

// RecordSleep stores the statistics of the epoch that is ending.
func (j *Journal) RecordSleep(st power.State) error {
	e := Epoch{
		Version: CurrentVersion,
		Unpairs: uint16(st.Unpairs),
		Boot:    j.boot,
		Reports: st.Reports,
		Uptime:  st.Uptime(st.Sleep),
	}
	data, err := e.MarshalBinary()
	if err != nil {
		return err
	}
	return j.atomicWrite(epochFile, data)
}

func (j *Journal) read(path string, buf []byte) error {
	f, err := j.fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	n, err := f.Read(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return ErrInvalidRecord
	}
	return nil
}

// atomicWrite writes data to a temporary file, syncs it, then renames it
// over path, so a record is never half written.
func (j *Journal) atomicWrite(path string, data []byte) error {
	tmp := path + tempSuffix
	j.fs.Remove(tmp)

	f, err := j.fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("bootlog: create %s: %w", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		j.fs.Remove(tmp)
		return fmt.Errorf("bootlog: write %s: %w", tmp, err)
	}
	if syncer, ok := f.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			f.Close()
			j.fs.Remove(tmp)
			return fmt.Errorf("bootlog: sync %s: %w", tmp, err)
		}
	}
	if err := f.Close(); err != nil {
		j.fs.Remove(tmp)
		return fmt.Errorf("bootlog: close %s: %w", tmp, err)
	}

	// LittleFS rename does not replace.
	j.fs.Remove(path)
	if err := j.fs.Rename(tmp, path); err != nil {
		j.fs.Remove(tmp)
		return fmt.Errorf("bootlog: rename %s: %w", tmp, err)
	}
	return nil
}

// isExist matches "already exists" from LittleFS, which does not always
// satisfy os.IsExist.
func isExist(err error) bool {
	return os.IsExist(err) || strings.Contains(err.Error(), "already exists")
}

// Shared memory and named mutex, realized on POSIX per Design Note 9: a
// file under a shared directory (default /dev/shm) mmap'd with
// golang.org/x/sys/unix, and a whole-file flock on that same file standing
// in for the named mutex. golang.org/x/sys is already pulled transitively
// into the pack's dependency graph (periph.io and others require it); this
// package is what promotes it to a direct, exercised dependency.
package transport

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// SharedRegionSize is the fixed mapping size spec.md §6 specifies for the
// named shared-memory region.
const SharedRegionSize = 10000

// MutexName and RegionName are the canonical cross-process names from
// spec.md §6. RegionName is the name of the backing file; MutexName names no
// separate object, since the lock is taken on the region file itself.
const (
	MutexName = "GenericTelemetryProviderMutex"
	RegionName = "GenericTelemetryProviderFiltered"
)

// SharedRegion is a named, mmap'd, mutex-guarded byte region shared between
// the producer and any number of reading consumers in the same host.
type SharedRegion struct {
	file *os.File
	data []byte
}

// OpenOrCreate creates (if needed) and maps the named region under dir,
// sized to SharedRegionSize. This is the producer-side entry point: the
// producer is the sole owner and writer of the mapping.
func OpenOrCreate(dir, name string) (*SharedRegion, error) {
	path := dir + "/" + name
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("transport: open shared region %q: %w", path, err)
	}
	if err := f.Truncate(SharedRegionSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("transport: truncate shared region: %w", err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, SharedRegionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("transport: mmap shared region: %w", err)
	}
	return &SharedRegion{file: f, data: data}, nil
}

// OpenExisting maps an already-created region for read access. It returns
// an error (never blocks or retries) when the region does not yet exist;
// callers implement the "retry every 1s" back-off described in spec.md §4.6.
func OpenExisting(dir, name string) (*SharedRegion, error) {
	path := dir + "/" + name
	f, err := os.OpenFile(path, os.O_RDWR, 0o666)
	if err != nil {
		return nil, fmt.Errorf("transport: open existing shared region %q: %w", path, err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, SharedRegionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("transport: mmap existing shared region: %w", err)
	}
	return &SharedRegion{file: f, data: data}, nil
}

// Lock acquires the cross-process whole-file flock standing in for the
// named mutex. It blocks until acquired.
func (r *SharedRegion) Lock() error {
	return unix.Flock(int(r.file.Fd()), unix.LOCK_EX)
}

// Unlock releases the lock taken by Lock.
func (r *SharedRegion) Unlock() error {
	return unix.Flock(int(r.file.Fd()), unix.LOCK_UN)
}

// WriteRecord acquires the mutex, writes exactly len(payload) bytes at
// offset 0, and releases it. payload must be at most SharedRegionSize
// bytes.
func (r *SharedRegion) WriteRecord(payload []byte) error {
	if len(payload) > SharedRegionSize {
		return fmt.Errorf("transport: payload %d bytes exceeds shared region size %d", len(payload), SharedRegionSize)
	}
	if err := r.Lock(); err != nil {
		return fmt.Errorf("transport: lock shared region: %w", err)
	}
	defer r.Unlock()
	copy(r.data, payload)
	return nil
}

// ReadRecord acquires the mutex, copies exactly n bytes from offset 0 into
// a fresh buffer, and releases it.
func (r *SharedRegion) ReadRecord(n int) ([]byte, error) {
	if n > SharedRegionSize {
		return nil, fmt.Errorf("transport: requested read %d bytes exceeds shared region size %d", n, SharedRegionSize)
	}
	if err := r.Lock(); err != nil {
		return nil, fmt.Errorf("transport: lock shared region: %w", err)
	}
	defer r.Unlock()
	out := make([]byte, n)
	copy(out, r.data[:n])
	return out, nil
}

// Close unmaps the region and closes the backing file descriptor.
func (r *SharedRegion) Close() error {
	err := unix.Munmap(r.data)
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	return err
}

package cfbfs

import (
	"io"
)

// Device is the positioned-read capability a mounted container reads
// through. Implementations must fill dst completely or fail as a
// whole; a short read is not a partial success.
type Device interface {
	ReadAt(dst []byte, offset int64) error
}

// readerAtDevice adapts any io.ReaderAt (an *os.File, a bytes.Reader via
// bytes.NewReader, etc.) into a Device.
type readerAtDevice struct {
	r io.ReaderAt
}

// NewDevice wraps an io.ReaderAt as a Device. *os.File already
// satisfies io.ReaderAt, so callers can pass an opened file directly.
func NewDevice(r io.ReaderAt) Device {
	return &readerAtDevice{r: r}
}

func (d *readerAtDevice) ReadAt(dst []byte, offset int64) error {
	n, err := d.r.ReadAt(dst, offset)
	if n == len(dst) {
		return nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return wrapIO(err)
}

// readSector reads exactly one sector's worth of bytes at sector id
// sectorID. Sector s lives at file offset (s+1) * sectorSize, since
// the 512-byte header occupies the addressing slot before sector 0.
func readSector(dev Device, sectorID uint32, sectorSize int) ([]byte, error) {
	buf := make([]byte, sectorSize)
	if err := dev.ReadAt(buf, sectorOffset(sectorID, sectorSize)); err != nil {
		return nil, err
	}
	return buf, nil
}

func sectorOffset(sectorID uint32, sectorSize int) int64 {
	return (int64(sectorID) + 1) * int64(sectorSize)
}

package ldm

import (
	"fmt"
	"sort"

	"github.com/zxrohex/diskstream/internal/streams"
)

// DefaultSectorSize is the sector size assumed when none is configured.
const DefaultSectorSize = 512

// VolumeInfo is the per-volume handle exposed to disk-management tooling.
type VolumeInfo struct {
	Record VolumeRecord
	Status HealthStatus
}

// DiskGroup binds a record database to the physical disks discovered so far
// and assembles runnable volume streams from them.
//
// Membership is monotonic: disks are added one at a time as they are
// discovered and never removed. Health is always computed against the
// currently-added set, and adding a disk does not retroactively upgrade
// streams opened earlier.
type DiskGroup struct {
	db         *Database
	sectorSize int64
	present    map[int64]streams.SparseStream
}

// NewDiskGroup opens a disk group over a loaded database. A sectorSize of 0
// selects DefaultSectorSize.
func NewDiskGroup(db *Database, sectorSize int64) *DiskGroup {
	if sectorSize <= 0 {
		sectorSize = DefaultSectorSize
	}
	return &DiskGroup{
		db:         db,
		sectorSize: sectorSize,
		present:    make(map[int64]streams.SparseStream),
	}
}

// AddDisk registers the content stream of a physically present member disk.
// The disk must be known to the database and not already added.
func (g *DiskGroup) AddDisk(diskID int64, content streams.SparseStream) error {
	d, ok := g.db.Disk(diskID)
	if !ok {
		return fmt.Errorf("ldm: disk %d is not a member of group %q: %w",
			diskID, g.db.Group().Name, streams.ErrFormat)
	}
	if _, dup := g.present[diskID]; dup {
		return fmt.Errorf("ldm: disk %s (%d) already added: %w", d.Name, diskID, streams.ErrFormat)
	}
	g.present[diskID] = content
	return nil
}

// DiskPresent reports whether the disk has been discovered.
func (g *DiskGroup) DiskPresent(diskID int64) bool {
	_, ok := g.present[diskID]
	return ok
}

// ComponentStatus is Healthy only when every extent's backing disk is
// present; a single missing disk fails the whole component.
func (g *DiskGroup) ComponentStatus(c ComponentRecord) HealthStatus {
	for _, e := range g.db.ExtentsOfComponent(c.ID) {
		if !g.DiskPresent(e.DiskID) {
			return StatusFailed
		}
	}
	return StatusHealthy
}

// VolumeStatus computes the volume's health from its components: no healthy
// component means Failed, all healthy means Healthy, a partially healthy
// mirror set means FailedRedundancy.
func (g *DiskGroup) VolumeStatus(volumeID int64) (HealthStatus, error) {
	if _, ok := g.db.Volume(volumeID); !ok {
		return StatusFailed, fmt.Errorf("ldm: unknown volume %d: %w", volumeID, streams.ErrFormat)
	}
	components := g.db.ComponentsOfVolume(volumeID)
	healthy := 0
	for _, c := range components {
		if g.ComponentStatus(c) == StatusHealthy {
			healthy++
		}
	}
	switch {
	case healthy == 0:
		return StatusFailed, nil
	case healthy == len(components):
		return StatusHealthy, nil
	default:
		return StatusFailedRedundancy, nil
	}
}

// Volumes enumerates the group's volumes with their current status, ordered
// by record number.
func (g *DiskGroup) Volumes() []VolumeInfo {
	records := g.db.Volumes()
	out := make([]VolumeInfo, 0, len(records))
	for _, v := range records {
		status, _ := g.VolumeStatus(v.ID)
		out = append(out, VolumeInfo{Record: v, Status: status})
	}
	return out
}

// OpenVolume assembles the volume's sparse stream from its healthy
// components: one healthy component passes through, several mirror, none is
// fatal at open time.
func (g *DiskGroup) OpenVolume(volumeID int64) (streams.SparseStream, error) {
	volume, ok := g.db.Volume(volumeID)
	if !ok {
		return nil, fmt.Errorf("ldm: unknown volume %d: %w", volumeID, streams.ErrFormat)
	}

	var copies []streams.SparseStream
	for _, c := range g.db.ComponentsOfVolume(volumeID) {
		if g.ComponentStatus(c) != StatusHealthy {
			continue
		}
		assembled, err := g.assembleComponent(c)
		if err != nil {
			for _, s := range copies {
				s.Close()
			}
			return nil, fmt.Errorf("ldm: volume %q component %q: %w", volume.Name, c.Name, err)
		}
		copies = append(copies, assembled)
	}

	switch len(copies) {
	case 0:
		return nil, fmt.Errorf("ldm: volume %q: %w", volume.Name, streams.ErrNoHealthyComponents)
	case 1:
		return copies[0], nil
	default:
		return streams.NewMirror(streams.OwnChildren, copies...)
	}
}

// assembleComponent builds one complete copy of the volume from the
// component's extents, selected by merge type.
func (g *DiskGroup) assembleComponent(c ComponentRecord) (streams.SparseStream, error) {
	extents := g.db.ExtentsOfComponent(c.ID)
	if len(extents) == 0 {
		return nil, fmt.Errorf("component %q has no extents: %w", c.Name, streams.ErrFormat)
	}

	switch c.MergeType {
	case MergeConcatenated:
		return g.assembleConcatenated(c, extents)
	case MergeInterleaved:
		return g.assembleInterleaved(c, extents)
	default:
		return nil, fmt.Errorf("component %q merge type %d: %w",
			c.Name, c.MergeType, streams.ErrUnsupportedVariant)
	}
}

// assembleConcatenated sorts extents by volume offset, verifies they tile
// the component's address space exactly, and concatenates the bounded disk
// sub-ranges in order.
func (g *DiskGroup) assembleConcatenated(c ComponentRecord, extents []ExtentRecord) (streams.SparseStream, error) {
	sorted := make([]ExtentRecord, len(extents))
	copy(sorted, extents)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].VolumeOffsetLBA < sorted[j].VolumeOffsetLBA
	})

	var running int64
	children := make([]streams.SparseStream, 0, len(sorted))
	for _, e := range sorted {
		if e.VolumeOffsetLBA != running {
			return nil, fmt.Errorf("component %q extent %q at volume offset %d, expected %d: %w",
				c.Name, e.Name, e.VolumeOffsetLBA, running, streams.ErrNonContiguousExtents)
		}
		running += e.SizeLBA
		sub, err := g.openExtent(e)
		if err != nil {
			return nil, err
		}
		children = append(children, sub)
	}

	if len(children) == 1 {
		return children[0], nil
	}
	return streams.NewConcat(streams.OwnChildren, children...)
}

// assembleInterleaved sorts extents by interleave order, verifies the orders
// are distinct and consecutive and the columns equal-sized, then stripes the
// bounded disk sub-ranges with the component's stripe size.
func (g *DiskGroup) assembleInterleaved(c ComponentRecord, extents []ExtentRecord) (streams.SparseStream, error) {
	if c.StripeSizeSectors <= 0 {
		return nil, fmt.Errorf("component %q stripe size %d sectors: %w",
			c.Name, c.StripeSizeSectors, streams.ErrFormat)
	}
	sorted := make([]ExtentRecord, len(extents))
	copy(sorted, extents)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].InterleaveOrder < sorted[j].InterleaveOrder
	})

	children := make([]streams.SparseStream, 0, len(sorted))
	for i, e := range sorted {
		if want := sorted[0].InterleaveOrder + i; e.InterleaveOrder != want {
			return nil, fmt.Errorf("component %q extent %q interleave order %d, expected %d: %w",
				c.Name, e.Name, e.InterleaveOrder, want, streams.ErrFormat)
		}
		if e.SizeLBA != sorted[0].SizeLBA {
			return nil, fmt.Errorf("component %q extent %q size %d sectors, expected %d: %w",
				c.Name, e.Name, e.SizeLBA, sorted[0].SizeLBA, streams.ErrFormat)
		}
		sub, err := g.openExtent(e)
		if err != nil {
			return nil, err
		}
		children = append(children, sub)
	}

	if len(children) == 1 {
		return children[0], nil
	}
	return streams.NewStripe(c.StripeSizeSectors*g.sectorSize, streams.OwnChildren, children...)
}

// openExtent opens the disk-relative run an extent record describes as a
// bounded sub-stream of the member disk's content.
func (g *DiskGroup) openExtent(e ExtentRecord) (streams.SparseStream, error) {
	disk, ok := g.present[e.DiskID]
	if !ok {
		// Callers check component health first; reaching here means the
		// database changed underneath us.
		return nil, fmt.Errorf("extent %q disk %d not present: %w", e.Name, e.DiskID, streams.ErrFormat)
	}
	sub, err := streams.NewSub(disk, e.DiskOffsetLBA*g.sectorSize, e.SizeLBA*g.sectorSize, streams.OwnNone)
	if err != nil {
		return nil, fmt.Errorf("extent %q: %w", e.Name, err)
	}
	return sub, nil
}

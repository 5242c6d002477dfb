// Package ldm assembles logical volumes from a dynamic disk group's private
// metadata database: disks, volumes, components and extents. Parsing the
// on-disk database format is a collaborator concern; this package consumes
// the parsed record collections, computes volume health against the
// currently-known disk set, and constructs the sparse stream for each
// volume from bounded sub-ranges of its member disks.
package ldm

import "github.com/google/uuid"

// MergeType selects how a component combines its extents into one copy of
// the volume.
type MergeType int

const (
	// MergeConcatenated lays extents end to end in volume offset order.
	MergeConcatenated MergeType = iota

	// MergeInterleaved stripes extents round-robin in interleave order.
	MergeInterleaved
)

func (m MergeType) String() string {
	switch m {
	case MergeConcatenated:
		return "Concatenated"
	case MergeInterleaved:
		return "Interleaved"
	default:
		return "Unknown"
	}
}

// HealthStatus describes how usable a component or volume currently is.
type HealthStatus int

const (
	// StatusHealthy means every backing disk is present.
	StatusHealthy HealthStatus = iota

	// StatusFailedRedundancy means the volume is readable but at least one
	// mirror component has failed.
	StatusFailedRedundancy

	// StatusFailed means no component of the volume can be assembled.
	StatusFailed
)

func (h HealthStatus) String() string {
	switch h {
	case StatusHealthy:
		return "Healthy"
	case StatusFailedRedundancy:
		return "FailedRedundancy"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// DiskGroupRecord identifies the group itself.
type DiskGroupRecord struct {
	ID    int64
	GUID  uuid.UUID
	Name  string
	Flags uint32
}

// DiskRecord identifies one physical disk known to the group. A disk record
// may exist while the disk itself is physically absent; absence drives
// degraded status, it does not remove the record.
type DiskRecord struct {
	ID   int64
	GUID uuid.UUID
	Name string
}

// VolumeRecord identifies one logical volume.
type VolumeRecord struct {
	ID             int64
	GUID           uuid.UUID
	Name           string
	ComponentCount int
	BIOSType       byte
	MountHint      string
}

// ComponentRecord is one complete copy of a volume's content. Multiple
// components on one volume form a mirror set.
type ComponentRecord struct {
	ID       int64
	Name     string
	VolumeID int64

	MergeType MergeType

	// StripeSizeSectors and StripeStride apply to interleaved components
	// only: the stripe size in sectors and the number of columns.
	StripeSizeSectors int64
	StripeStride      int
}

// ExtentRecord maps a run of a component onto a run of a physical disk. All
// offsets and sizes are in sectors.
type ExtentRecord struct {
	ID          int64
	Name        string
	ComponentID int64
	DiskID      int64

	DiskOffsetLBA   int64
	VolumeOffsetLBA int64
	SizeLBA         int64

	// InterleaveOrder positions this extent in the stripe rotation of an
	// interleaved component.
	InterleaveOrder int
}

package ldm

import (
	"fmt"
	"sort"

	"github.com/zxrohex/diskstream/internal/streams"
)

// Database is an in-memory indexed view over a disk group's parsed record
// collections. Records are loaded once when the group is opened and held for
// the group's lifetime; the database itself is read-only.
type Database struct {
	group DiskGroupRecord

	disks      map[int64]DiskRecord
	volumes    map[int64]VolumeRecord
	components map[int64]ComponentRecord
	extents    map[int64]ExtentRecord

	componentsByVolume map[int64][]int64
	extentsByComponent map[int64][]int64
}

// NewDatabase indexes the record collections, validating referential
// integrity: every extent must reference a live component and disk record,
// and every component a live volume record.
func NewDatabase(group DiskGroupRecord, disks []DiskRecord, volumes []VolumeRecord,
	components []ComponentRecord, extents []ExtentRecord) (*Database, error) {

	db := &Database{
		group:              group,
		disks:              make(map[int64]DiskRecord, len(disks)),
		volumes:            make(map[int64]VolumeRecord, len(volumes)),
		components:         make(map[int64]ComponentRecord, len(components)),
		extents:            make(map[int64]ExtentRecord, len(extents)),
		componentsByVolume: make(map[int64][]int64),
		extentsByComponent: make(map[int64][]int64),
	}

	for _, d := range disks {
		if _, dup := db.disks[d.ID]; dup {
			return nil, fmt.Errorf("ldm: duplicate disk record %d (%s): %w", d.ID, d.Name, streams.ErrFormat)
		}
		db.disks[d.ID] = d
	}
	for _, v := range volumes {
		if _, dup := db.volumes[v.ID]; dup {
			return nil, fmt.Errorf("ldm: duplicate volume record %d (%s): %w", v.ID, v.Name, streams.ErrFormat)
		}
		db.volumes[v.ID] = v
	}
	for _, c := range components {
		if _, dup := db.components[c.ID]; dup {
			return nil, fmt.Errorf("ldm: duplicate component record %d (%s): %w", c.ID, c.Name, streams.ErrFormat)
		}
		if _, ok := db.volumes[c.VolumeID]; !ok {
			return nil, fmt.Errorf("ldm: component %s references unknown volume %d: %w",
				c.Name, c.VolumeID, streams.ErrFormat)
		}
		db.components[c.ID] = c
		db.componentsByVolume[c.VolumeID] = append(db.componentsByVolume[c.VolumeID], c.ID)
	}
	for _, e := range extents {
		if _, dup := db.extents[e.ID]; dup {
			return nil, fmt.Errorf("ldm: duplicate extent record %d (%s): %w", e.ID, e.Name, streams.ErrFormat)
		}
		if _, ok := db.components[e.ComponentID]; !ok {
			return nil, fmt.Errorf("ldm: extent %s references unknown component %d: %w",
				e.Name, e.ComponentID, streams.ErrFormat)
		}
		if _, ok := db.disks[e.DiskID]; !ok {
			return nil, fmt.Errorf("ldm: extent %s references unknown disk %d: %w",
				e.Name, e.DiskID, streams.ErrFormat)
		}
		if e.SizeLBA < 0 || e.DiskOffsetLBA < 0 || e.VolumeOffsetLBA < 0 {
			return nil, fmt.Errorf("ldm: extent %s has negative geometry: %w", e.Name, streams.ErrFormat)
		}
		db.extents[e.ID] = e
		db.extentsByComponent[e.ComponentID] = append(db.extentsByComponent[e.ComponentID], e.ID)
	}

	for _, ids := range db.componentsByVolume {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	for _, ids := range db.extentsByComponent {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	return db, nil
}

// Group returns the group identity record.
func (db *Database) Group() DiskGroupRecord { return db.group }

// Disks returns all disk records ordered by record number.
func (db *Database) Disks() []DiskRecord {
	out := make([]DiskRecord, 0, len(db.disks))
	for _, d := range db.disks {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Volumes returns all volume records ordered by record number.
func (db *Database) Volumes() []VolumeRecord {
	out := make([]VolumeRecord, 0, len(db.volumes))
	for _, v := range db.volumes {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Disk looks up one disk record.
func (db *Database) Disk(id int64) (DiskRecord, bool) {
	d, ok := db.disks[id]
	return d, ok
}

// Volume looks up one volume record.
func (db *Database) Volume(id int64) (VolumeRecord, bool) {
	v, ok := db.volumes[id]
	return v, ok
}

// ComponentsOfVolume returns a volume's components in construction order
// (record number).
func (db *Database) ComponentsOfVolume(volumeID int64) []ComponentRecord {
	ids := db.componentsByVolume[volumeID]
	out := make([]ComponentRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, db.components[id])
	}
	return out
}

// ExtentsOfComponent returns a component's extents in record order. The
// assembler re-sorts by volume offset or interleave order as its merge type
// requires.
func (db *Database) ExtentsOfComponent(componentID int64) []ExtentRecord {
	ids := db.extentsByComponent[componentID]
	out := make([]ExtentRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, db.extents[id])
	}
	return out
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/zxrohex/diskstream/internal/disk"
	"github.com/zxrohex/diskstream/internal/ldm"
	"github.com/zxrohex/diskstream/internal/streams"
)

// The JSON shapes below are the CLI's own loader for record collections a
// database parser would normally supply; they are tooling glue, not a core
// format.

type groupFile struct {
	Group      groupJSON    `json:"group"`
	Disks      []diskJSON   `json:"disks"`
	Volumes    []volumeJSON `json:"volumes"`
	Components []compJSON   `json:"components"`
	Extents    []extentJSON `json:"extents"`
}

type groupJSON struct {
	ID    int64  `json:"id"`
	GUID  string `json:"guid"`
	Name  string `json:"name"`
	Flags uint32 `json:"flags"`
}

type diskJSON struct {
	ID   int64  `json:"id"`
	GUID string `json:"guid"`
	Name string `json:"name"`
}

type volumeJSON struct {
	ID             int64  `json:"id"`
	GUID           string `json:"guid"`
	Name           string `json:"name"`
	ComponentCount int    `json:"componentCount"`
	BIOSType       byte   `json:"biosType"`
	MountHint      string `json:"mountHint"`
}

type compJSON struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	VolumeID          int64  `json:"volumeId"`
	MergeType         string `json:"mergeType"`
	StripeSizeSectors int64  `json:"stripeSizeSectors"`
	StripeStride      int    `json:"stripeStride"`
}

type extentJSON struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	ComponentID     int64  `json:"componentId"`
	DiskID          int64  `json:"diskId"`
	DiskOffset      int64  `json:"diskOffset"`
	VolumeOffset    int64  `json:"volumeOffset"`
	Size            int64  `json:"size"`
	InterleaveOrder int    `json:"interleaveOrder"`
}

func parseGUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}

func parseMergeType(s string) (ldm.MergeType, error) {
	switch strings.ToLower(s) {
	case "", "concatenated", "spanned":
		return ldm.MergeConcatenated, nil
	case "interleaved", "striped":
		return ldm.MergeInterleaved, nil
	default:
		return 0, fmt.Errorf("unknown merge type %q", s)
	}
}

// loadDatabase reads a JSON record export and indexes it.
func loadDatabase(path string) (*ldm.Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read database file: %w", err)
	}
	var file groupFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse database file: %w", err)
	}

	groupGUID, err := parseGUID(file.Group.GUID)
	if err != nil {
		return nil, fmt.Errorf("group guid: %w", err)
	}
	group := ldm.DiskGroupRecord{
		ID: file.Group.ID, GUID: groupGUID, Name: file.Group.Name, Flags: file.Group.Flags,
	}

	disks := make([]ldm.DiskRecord, 0, len(file.Disks))
	for _, d := range file.Disks {
		guid, err := parseGUID(d.GUID)
		if err != nil {
			return nil, fmt.Errorf("disk %q guid: %w", d.Name, err)
		}
		disks = append(disks, ldm.DiskRecord{ID: d.ID, GUID: guid, Name: d.Name})
	}

	volumes := make([]ldm.VolumeRecord, 0, len(file.Volumes))
	for _, v := range file.Volumes {
		guid, err := parseGUID(v.GUID)
		if err != nil {
			return nil, fmt.Errorf("volume %q guid: %w", v.Name, err)
		}
		volumes = append(volumes, ldm.VolumeRecord{
			ID: v.ID, GUID: guid, Name: v.Name,
			ComponentCount: v.ComponentCount, BIOSType: v.BIOSType, MountHint: v.MountHint,
		})
	}

	components := make([]ldm.ComponentRecord, 0, len(file.Components))
	for _, c := range file.Components {
		mergeType, err := parseMergeType(c.MergeType)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", c.Name, err)
		}
		components = append(components, ldm.ComponentRecord{
			ID: c.ID, Name: c.Name, VolumeID: c.VolumeID, MergeType: mergeType,
			StripeSizeSectors: c.StripeSizeSectors, StripeStride: c.StripeStride,
		})
	}

	extents := make([]ldm.ExtentRecord, 0, len(file.Extents))
	for _, e := range file.Extents {
		extents = append(extents, ldm.ExtentRecord{
			ID: e.ID, Name: e.Name, ComponentID: e.ComponentID, DiskID: e.DiskID,
			DiskOffsetLBA: e.DiskOffset, VolumeOffsetLBA: e.VolumeOffset,
			SizeLBA: e.Size, InterleaveOrder: e.InterleaveOrder,
		})
	}

	return ldm.NewDatabase(group, disks, volumes, components, extents)
}

// openGroup loads the database and attaches every disk image supplied via
// --disk id=path. The returned closers release the opened images.
func openGroup() (*ldm.DiskGroup, []streams.SparseStream, error) {
	if dbPath == "" {
		return nil, nil, fmt.Errorf("--db is required")
	}
	db, err := loadDatabase(dbPath)
	if err != nil {
		return nil, nil, err
	}

	config, err := disk.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	config.Verbose = config.Verbose || verbose

	group := ldm.NewDiskGroup(db, config.SectorSize)

	var opened []streams.SparseStream
	for _, flag := range diskFlags {
		idStr, path, ok := strings.Cut(flag, "=")
		if !ok {
			return nil, opened, fmt.Errorf("invalid --disk %q, want id=path", flag)
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, opened, fmt.Errorf("invalid --disk id %q: %w", idStr, err)
		}
		stream, err := disk.OpenStream(path, false, config)
		if err != nil {
			return nil, opened, fmt.Errorf("disk %d: %w", id, err)
		}
		opened = append(opened, stream)
		if err := group.AddDisk(id, stream); err != nil {
			return nil, opened, err
		}
	}
	return group, opened, nil
}

func closeAll(opened []streams.SparseStream) {
	for _, s := range opened {
		s.Close()
	}
}

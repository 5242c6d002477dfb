package ldm

import (
	"fmt"
	"io"
)

// Dump writes a line-oriented report of the group's disk, volume, component
// and extent hierarchy with current health state, indented one level per
// nesting. The exact text is diagnostic output for operators, not a
// compatibility contract.
func (g *DiskGroup) Dump(w io.Writer) error {
	group := g.db.Group()
	if _, err := fmt.Fprintf(w, "Disk Group: %s (%s) flags=0x%x\n",
		group.Name, group.GUID, group.Flags); err != nil {
		return err
	}

	fmt.Fprintf(w, "  Disks:\n")
	for _, d := range g.db.Disks() {
		presence := "missing"
		if g.DiskPresent(d.ID) {
			presence = "present"
		}
		fmt.Fprintf(w, "    Disk: %s (%s) id=%d %s\n", d.Name, d.GUID, d.ID, presence)
	}

	fmt.Fprintf(w, "  Volumes:\n")
	for _, v := range g.Volumes() {
		r := v.Record
		fmt.Fprintf(w, "    Volume: %s (%s) id=%d status=%s components=%d biosType=0x%02x hint=%q\n",
			r.Name, r.GUID, r.ID, v.Status, r.ComponentCount, r.BIOSType, r.MountHint)
		for _, c := range g.db.ComponentsOfVolume(r.ID) {
			fmt.Fprintf(w, "      Component: %s id=%d merge=%s stripeSectors=%d stride=%d status=%s\n",
				c.Name, c.ID, c.MergeType, c.StripeSizeSectors, c.StripeStride, g.ComponentStatus(c))
			for _, e := range g.db.ExtentsOfComponent(c.ID) {
				diskName := "?"
				if d, ok := g.db.Disk(e.DiskID); ok {
					diskName = d.Name
				}
				fmt.Fprintf(w, "        Extent: %s id=%d disk=%s diskOffset=%d volumeOffset=%d size=%d order=%d\n",
					e.Name, e.ID, diskName, e.DiskOffsetLBA, e.VolumeOffsetLBA, e.SizeLBA, e.InterleaveOrder)
			}
		}
	}
	return nil
}

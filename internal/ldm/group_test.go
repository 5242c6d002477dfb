package ldm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zxrohex/diskstream/internal/streams"
)

func testGroupRecord() DiskGroupRecord {
	return DiskGroupRecord{ID: 1, GUID: uuid.MustParse("8b3f8f9e-0000-4000-8000-000000000001"), Name: "dg1"}
}

// mirrorFixture builds a volume with two concatenated components, each one
// extent on its own disk.
func mirrorFixture(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(
		testGroupRecord(),
		[]DiskRecord{
			{ID: 10, GUID: uuid.New(), Name: "disk1"},
			{ID: 11, GUID: uuid.New(), Name: "disk2"},
		},
		[]VolumeRecord{
			{ID: 20, GUID: uuid.New(), Name: "vol1", ComponentCount: 2},
		},
		[]ComponentRecord{
			{ID: 30, Name: "vol1-01", VolumeID: 20, MergeType: MergeConcatenated},
			{ID: 31, Name: "vol1-02", VolumeID: 20, MergeType: MergeConcatenated},
		},
		[]ExtentRecord{
			{ID: 40, Name: "vol1-01-ext", ComponentID: 30, DiskID: 10, DiskOffsetLBA: 0, VolumeOffsetLBA: 0, SizeLBA: 128},
			{ID: 41, Name: "vol1-02-ext", ComponentID: 31, DiskID: 11, DiskOffsetLBA: 0, VolumeOffsetLBA: 0, SizeLBA: 128},
		},
	)
	require.NoError(t, err)
	return db
}

func TestMirrorVolumeHealthMatrix(t *testing.T) {
	tests := []struct {
		name     string
		addDisks []int64
		want     HealthStatus
	}{
		{name: "Both disks added", addDisks: []int64{10, 11}, want: StatusHealthy},
		{name: "Only first disk added", addDisks: []int64{10}, want: StatusFailedRedundancy},
		{name: "Only second disk added", addDisks: []int64{11}, want: StatusFailedRedundancy},
		{name: "No disks added", addDisks: nil, want: StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewDiskGroup(mirrorFixture(t), 1)
			for _, id := range tt.addDisks {
				require.NoError(t, g.AddDisk(id, streams.NewBufferSize(128)))
			}
			status, err := g.VolumeStatus(20)
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestOpenMirrorVolume(t *testing.T) {
	db := mirrorFixture(t)
	g := NewDiskGroup(db, 1)

	disk1 := streams.NewBuffer(bytes.Repeat([]byte{0xD1}, 128))
	disk2 := streams.NewBuffer(bytes.Repeat([]byte{0xD2}, 128))
	require.NoError(t, g.AddDisk(10, disk1))
	require.NoError(t, g.AddDisk(11, disk2))

	vol, err := g.OpenVolume(20)
	require.NoError(t, err)
	defer vol.Close()

	assert.Equal(t, int64(128), vol.Length())

	// Reads come from the first healthy component by construction order.
	got := make([]byte, 16)
	_, err = vol.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xD1}, 16), got)
}

func TestOpenVolumeDegradedReadsSurvivingComponent(t *testing.T) {
	db := mirrorFixture(t)
	g := NewDiskGroup(db, 1)

	disk2 := streams.NewBuffer(bytes.Repeat([]byte{0xD2}, 128))
	require.NoError(t, g.AddDisk(11, disk2))

	vol, err := g.OpenVolume(20)
	require.NoError(t, err)
	defer vol.Close()

	got := make([]byte, 8)
	_, err = vol.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xD2}, 8), got)
}

func TestOpenVolumeNoHealthyComponents(t *testing.T) {
	g := NewDiskGroup(mirrorFixture(t), 1)
	_, err := g.OpenVolume(20)
	assert.ErrorIs(t, err, streams.ErrNoHealthyComponents)
}

// concatFixture builds a single-component volume whose extents are supplied
// in the given order.
func concatFixture(t *testing.T, extents []ExtentRecord) *Database {
	t.Helper()
	db, err := NewDatabase(
		testGroupRecord(),
		[]DiskRecord{{ID: 10, GUID: uuid.New(), Name: "disk1"}},
		[]VolumeRecord{{ID: 20, GUID: uuid.New(), Name: "spanned", ComponentCount: 1}},
		[]ComponentRecord{{ID: 30, Name: "spanned-01", VolumeID: 20, MergeType: MergeConcatenated}},
		extents,
	)
	require.NoError(t, err)
	return db
}

func TestConcatenatedAssembly(t *testing.T) {
	tests := []struct {
		name    string
		extents []ExtentRecord
		wantErr error
		wantLen int64
	}{
		{
			name: "Contiguous in order",
			extents: []ExtentRecord{
				{ID: 40, Name: "e0", ComponentID: 30, DiskID: 10, DiskOffsetLBA: 0, VolumeOffsetLBA: 0, SizeLBA: 100},
				{ID: 41, Name: "e1", ComponentID: 30, DiskID: 10, DiskOffsetLBA: 200, VolumeOffsetLBA: 100, SizeLBA: 50},
			},
			wantLen: 150,
		},
		{
			name: "Contiguous supplied out of order",
			extents: []ExtentRecord{
				{ID: 40, Name: "e1", ComponentID: 30, DiskID: 10, DiskOffsetLBA: 200, VolumeOffsetLBA: 100, SizeLBA: 50},
				{ID: 41, Name: "e0", ComponentID: 30, DiskID: 10, DiskOffsetLBA: 0, VolumeOffsetLBA: 0, SizeLBA: 100},
			},
			wantLen: 150,
		},
		{
			name: "Gap in volume offsets",
			extents: []ExtentRecord{
				{ID: 40, Name: "e0", ComponentID: 30, DiskID: 10, DiskOffsetLBA: 0, VolumeOffsetLBA: 0, SizeLBA: 100},
				{ID: 41, Name: "e1", ComponentID: 30, DiskID: 10, DiskOffsetLBA: 200, VolumeOffsetLBA: 150, SizeLBA: 50},
			},
			wantErr: streams.ErrNonContiguousExtents,
		},
		{
			name: "Overlapping volume offsets",
			extents: []ExtentRecord{
				{ID: 40, Name: "e0", ComponentID: 30, DiskID: 10, DiskOffsetLBA: 0, VolumeOffsetLBA: 0, SizeLBA: 100},
				{ID: 41, Name: "e1", ComponentID: 30, DiskID: 10, DiskOffsetLBA: 200, VolumeOffsetLBA: 90, SizeLBA: 50},
			},
			wantErr: streams.ErrNonContiguousExtents,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewDiskGroup(concatFixture(t, tt.extents), 1)
			require.NoError(t, g.AddDisk(10, streams.NewBufferSize(1024)))

			vol, err := g.OpenVolume(20)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer vol.Close()
			assert.Equal(t, tt.wantLen, vol.Length())
		})
	}
}

func TestConcatenatedAssemblyMapsDiskRuns(t *testing.T) {
	db := concatFixture(t, []ExtentRecord{
		{ID: 40, Name: "e0", ComponentID: 30, DiskID: 10, DiskOffsetLBA: 0, VolumeOffsetLBA: 0, SizeLBA: 100},
		{ID: 41, Name: "e1", ComponentID: 30, DiskID: 10, DiskOffsetLBA: 200, VolumeOffsetLBA: 100, SizeLBA: 50},
	})
	g := NewDiskGroup(db, 1)

	disk := make([]byte, 1024)
	for i := 0; i < 100; i++ {
		disk[i] = 0xAA
	}
	for i := 200; i < 250; i++ {
		disk[i] = 0xBB
	}
	require.NoError(t, g.AddDisk(10, streams.NewBuffer(disk)))

	vol, err := g.OpenVolume(20)
	require.NoError(t, err)
	defer vol.Close()

	got := make([]byte, 150)
	_, err = vol.ReadAt(got, 0)
	require.NoError(t, err)
	want := append(bytes.Repeat([]byte{0xAA}, 100), bytes.Repeat([]byte{0xBB}, 50)...)
	assert.Equal(t, want, got)
}

func TestInterleavedAssembly(t *testing.T) {
	db, err := NewDatabase(
		testGroupRecord(),
		[]DiskRecord{
			{ID: 10, GUID: uuid.New(), Name: "disk1"},
			{ID: 11, GUID: uuid.New(), Name: "disk2"},
		},
		[]VolumeRecord{{ID: 20, GUID: uuid.New(), Name: "striped", ComponentCount: 1}},
		[]ComponentRecord{{ID: 30, Name: "striped-01", VolumeID: 20, MergeType: MergeInterleaved,
			StripeSizeSectors: 8, StripeStride: 2}},
		[]ExtentRecord{
			// Interleave order [1,0]: the extent on disk2 rotates first.
			{ID: 40, Name: "col0", ComponentID: 30, DiskID: 11, DiskOffsetLBA: 0, VolumeOffsetLBA: 0, SizeLBA: 32, InterleaveOrder: 0},
			{ID: 41, Name: "col1", ComponentID: 30, DiskID: 10, DiskOffsetLBA: 0, VolumeOffsetLBA: 0, SizeLBA: 32, InterleaveOrder: 1},
		},
	)
	require.NoError(t, err)

	g := NewDiskGroup(db, 512)
	disk1 := streams.NewBuffer(bytes.Repeat([]byte{0xD1}, 32*512))
	disk2 := streams.NewBuffer(bytes.Repeat([]byte{0xD2}, 32*512))
	require.NoError(t, g.AddDisk(10, disk1))
	require.NoError(t, g.AddDisk(11, disk2))

	vol, err := g.OpenVolume(20)
	require.NoError(t, err)
	defer vol.Close()

	assert.Equal(t, int64(64*512), vol.Length())

	// Stripe 0 comes from interleave position 0 (disk2), stripe 1 from
	// position 1 (disk1). Stripe size is 8 sectors = 4096 bytes.
	got := make([]byte, 1)
	_, err = vol.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, byte(0xD2), got[0])

	_, err = vol.ReadAt(got, 4096)
	require.NoError(t, err)
	assert.Equal(t, byte(0xD1), got[0], "start of stripe 1 must map to interleave position 1")
}

func TestInterleavedAssemblyValidatesColumns(t *testing.T) {
	tests := []struct {
		name    string
		extents []ExtentRecord
	}{
		{
			name: "Duplicate interleave order",
			extents: []ExtentRecord{
				{ID: 40, Name: "col0", ComponentID: 30, DiskID: 10, SizeLBA: 32, InterleaveOrder: 0},
				{ID: 41, Name: "col0-dup", ComponentID: 30, DiskID: 11, SizeLBA: 32, InterleaveOrder: 0},
			},
		},
		{
			name: "Gap in interleave orders",
			extents: []ExtentRecord{
				{ID: 40, Name: "col0", ComponentID: 30, DiskID: 10, SizeLBA: 32, InterleaveOrder: 0},
				{ID: 41, Name: "col2", ComponentID: 30, DiskID: 11, SizeLBA: 32, InterleaveOrder: 2},
			},
		},
		{
			name: "Unequal column sizes",
			extents: []ExtentRecord{
				{ID: 40, Name: "col0", ComponentID: 30, DiskID: 10, SizeLBA: 32, InterleaveOrder: 0},
				{ID: 41, Name: "col1", ComponentID: 30, DiskID: 11, SizeLBA: 16, InterleaveOrder: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := NewDatabase(
				testGroupRecord(),
				[]DiskRecord{
					{ID: 10, GUID: uuid.New(), Name: "disk1"},
					{ID: 11, GUID: uuid.New(), Name: "disk2"},
				},
				[]VolumeRecord{{ID: 20, GUID: uuid.New(), Name: "striped", ComponentCount: 1}},
				[]ComponentRecord{{ID: 30, Name: "striped-01", VolumeID: 20, MergeType: MergeInterleaved,
					StripeSizeSectors: 8, StripeStride: 2}},
				tt.extents,
			)
			require.NoError(t, err)

			g := NewDiskGroup(db, 512)
			require.NoError(t, g.AddDisk(10, streams.NewBufferSize(32*512)))
			require.NoError(t, g.AddDisk(11, streams.NewBufferSize(32*512)))

			_, err = g.OpenVolume(20)
			assert.ErrorIs(t, err, streams.ErrFormat)
		})
	}
}

func TestUnknownMergeTypeFailsAssembly(t *testing.T) {
	db, err := NewDatabase(
		testGroupRecord(),
		[]DiskRecord{{ID: 10, GUID: uuid.New(), Name: "disk1"}},
		[]VolumeRecord{{ID: 20, GUID: uuid.New(), Name: "odd", ComponentCount: 1}},
		[]ComponentRecord{{ID: 30, Name: "odd-01", VolumeID: 20, MergeType: MergeType(99)}},
		[]ExtentRecord{{ID: 40, Name: "e0", ComponentID: 30, DiskID: 10, SizeLBA: 8}},
	)
	require.NoError(t, err)

	g := NewDiskGroup(db, 1)
	require.NoError(t, g.AddDisk(10, streams.NewBufferSize(64)))

	_, err = g.OpenVolume(20)
	assert.ErrorIs(t, err, streams.ErrUnsupportedVariant)
}

func TestAddDiskValidation(t *testing.T) {
	g := NewDiskGroup(mirrorFixture(t), 1)

	err := g.AddDisk(99, streams.NewBufferSize(8))
	assert.ErrorIs(t, err, streams.ErrFormat, "unknown disk")

	require.NoError(t, g.AddDisk(10, streams.NewBufferSize(128)))
	err = g.AddDisk(10, streams.NewBufferSize(128))
	assert.ErrorIs(t, err, streams.ErrFormat, "duplicate add")
}

func TestDatabaseReferentialIntegrity(t *testing.T) {
	_, err := NewDatabase(
		testGroupRecord(),
		nil,
		[]VolumeRecord{{ID: 20, Name: "v"}},
		[]ComponentRecord{{ID: 30, Name: "c", VolumeID: 20}},
		[]ExtentRecord{{ID: 40, Name: "e", ComponentID: 30, DiskID: 99, SizeLBA: 1}},
	)
	assert.ErrorIs(t, err, streams.ErrFormat, "extent referencing unknown disk")

	_, err = NewDatabase(
		testGroupRecord(),
		nil, nil,
		[]ComponentRecord{{ID: 30, Name: "c", VolumeID: 77}},
		nil,
	)
	assert.ErrorIs(t, err, streams.ErrFormat, "component referencing unknown volume")
}

func TestDumpStructure(t *testing.T) {
	g := NewDiskGroup(mirrorFixture(t), 1)
	require.NoError(t, g.AddDisk(10, streams.NewBufferSize(128)))

	var buf bytes.Buffer
	require.NoError(t, g.Dump(&buf))
	out := buf.String()

	for _, want := range []string{
		"Disk Group: dg1",
		"Disk: disk1", "present",
		"Disk: disk2", "missing",
		"Volume: vol1", "status=FailedRedundancy",
		"Component: vol1-01", "merge=Concatenated",
		"Extent: vol1-01-ext", "size=128",
	} {
		assert.True(t, strings.Contains(out, want), "dump should contain %q, got:\n%s", want, out)
	}

	// Indentation deepens with nesting.
	assert.Contains(t, out, "    Disk:")
	assert.Contains(t, out, "      Component:")
	assert.Contains(t, out, "        Extent:")
}

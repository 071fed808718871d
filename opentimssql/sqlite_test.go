// Copyright 2024 The OpenTIMS-Go Authors.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package opentimssql

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/opentims/opentims-go"
)

func createFixtureTdf(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analysis.tdf")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	const schema = `CREATE TABLE Frames (
		Id INTEGER PRIMARY KEY,
		NumScans INTEGER,
		NumPeaks INTEGER,
		MsMsType INTEGER,
		AccumulationTime REAL,
		Time REAL,
		TimsId INTEGER
	);`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	rows := [][7]any{
		{1, 2, 1, 0, 100.0, 0.5, 0},
		{2, 3, 3, 8, 50.0, 1.0, 16},
	}
	for _, r := range rows {
		_, err := db.Exec(
			`INSERT INTO Frames (Id, NumScans, NumPeaks, MsMsType, AccumulationTime, Time, TimsId) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r[0], r[1], r[2], r[3], r[4], r[5], r[6],
		)
		if err != nil {
			t.Fatalf("insert frame row: %v", err)
		}
	}
	return path
}

func TestSQLiteMetadataProviderFrameDescriptors(t *testing.T) {
	path := createFixtureTdf(t)

	descs, err := SQLiteMetadataProvider{}.FrameDescriptors(context.Background(), path)
	if err != nil {
		t.Fatalf("FrameDescriptors: %v", err)
	}
	if len(descs) != 2 {
		t.Fatalf("len(descs) = %d, want 2", len(descs))
	}

	byID := make(map[uint32]opentims.FrameDescriptor, len(descs))
	for _, d := range descs {
		byID[d.ID] = d
	}

	d1, ok := byID[1]
	if !ok {
		t.Fatal("frame 1 missing")
	}
	if d1.NumScans != 2 || d1.NumPeaks != 1 {
		t.Errorf("frame 1: NumScans=%d NumPeaks=%d, want 2,1", d1.NumScans, d1.NumPeaks)
	}
	if d1.IntensityCorrection != 1.0 {
		t.Errorf("frame 1: IntensityCorrection = %v, want 1.0 (100/100)", d1.IntensityCorrection)
	}

	d2, ok := byID[2]
	if !ok {
		t.Fatal("frame 2 missing")
	}
	if d2.IntensityCorrection != 2.0 {
		t.Errorf("frame 2: IntensityCorrection = %v, want 2.0 (100/50)", d2.IntensityCorrection)
	}
	if d2.MsMsType != opentims.MsMsTypePASEF {
		t.Errorf("frame 2: MsMsType = %v, want MsMsTypePASEF", d2.MsMsType)
	}
	if d2.ByteOffset != 16 {
		t.Errorf("frame 2: ByteOffset = %d, want 16", d2.ByteOffset)
	}
}

func TestSQLiteMetadataProviderMissingFile(t *testing.T) {
	_, err := SQLiteMetadataProvider{}.FrameDescriptors(context.Background(), filepath.Join(t.TempDir(), "nope.tdf"))
	if err == nil {
		t.Fatal("expected an error opening a nonexistent database, got nil")
	}
}

func TestRegistersDefaultMetadataProvider(t *testing.T) {
	// This package's init registers itself as opentims.Open's default
	// MetadataProvider, so Open below needs no WithMetadataProvider option.
	path := createFixtureTdf(t)
	provider, ok := any(SQLiteMetadataProvider{}).(opentims.MetadataProvider)
	if !ok {
		t.Fatal("SQLiteMetadataProvider does not satisfy opentims.MetadataProvider")
	}
	if _, err := provider.FrameDescriptors(context.Background(), path); err != nil {
		t.Fatalf("FrameDescriptors via interface: %v", err)
	}

	dir := filepath.Dir(path)
	if err := os.WriteFile(filepath.Join(dir, "analysis.tdf_bin"), make([]byte, 64), 0o644); err != nil {
		t.Fatalf("write fixture binary: %v", err)
	}
	h, err := opentims.Open(dir)
	if err != nil {
		t.Fatalf("Open without WithMetadataProvider: %v", err)
	}
	defer h.Close()
	if got, want := h.PeaksTotal(), uint64(4); got != want {
		t.Errorf("PeaksTotal() = %d, want %d", got, want)
	}
}

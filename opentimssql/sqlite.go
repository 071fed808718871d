// Copyright 2024 The OpenTIMS-Go Authors.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package opentimssql is the default opentims.MetadataProvider, reading
// an acquisition's frame table out of its analysis.tdf SQLite file via
// database/sql and modernc.org/sqlite.
package opentimssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite" // register the "sqlite" driver

	"github.com/opentims/opentims-go"
)

const framesQuery = `SELECT Id, NumScans, NumPeaks, MsMsType, AccumulationTime, Time, TimsId FROM Frames;`

// SQLiteMetadataProvider implements opentims.MetadataProvider against a
// Bruker analysis.tdf file. It holds no state: each FrameDescriptors call
// opens its own short-lived, read-only connection and closes it before
// returning, so a zero-value SQLiteMetadataProvider is ready to use and
// safe to share.
type SQLiteMetadataProvider struct{}

func init() {
	opentims.RegisterDefaultMetadataProvider(func() opentims.MetadataProvider {
		return SQLiteMetadataProvider{}
	})
}

// FrameDescriptors opens tdfPath read-only and runs the canonical frames
// query, converting each row into an opentims.FrameDescriptor. The
// connection string mirrors claircore's RPM sqlite provider: a file: URL
// with query_only(1) so a malformed acquisition can never be mutated by
// accident.
func (SQLiteMetadataProvider) FrameDescriptors(ctx context.Context, tdfPath string) ([]opentims.FrameDescriptor, error) {
	u := url.URL{
		Scheme: "file",
		Opaque: tdfPath,
		RawQuery: url.Values{
			"_pragma": {"query_only(1)"},
		}.Encode(),
	}
	db, err := sql.Open("sqlite", u.String())
	if err != nil {
		return nil, fmt.Errorf("opentimssql: open %q: %w", tdfPath, err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("opentimssql: ping %q: %w", tdfPath, err)
	}

	rows, err := db.QueryContext(ctx, framesQuery)
	if err != nil {
		return nil, fmt.Errorf("opentimssql: query frames: %w", err)
	}
	defer rows.Close()

	var descs []opentims.FrameDescriptor
	for rows.Next() {
		var (
			id               uint32
			numScans         uint32
			numPeaks         uint32
			msmsType         uint32
			accumulationTime float64
			retentionTime    float64
			byteOffset       uint64
		)
		if err := rows.Scan(&id, &numScans, &numPeaks, &msmsType, &accumulationTime, &retentionTime, &byteOffset); err != nil {
			return nil, fmt.Errorf("opentimssql: scan frame row: %w", err)
		}
		if accumulationTime == 0 {
			return nil, fmt.Errorf("opentimssql: frame %d has zero accumulation time", id)
		}
		descs = append(descs, opentims.FrameDescriptor{
			ID:                  id,
			NumScans:            numScans,
			NumPeaks:            numPeaks,
			MsMsType:            opentims.MsMsType(msmsType),
			IntensityCorrection: 100.0 / accumulationTime,
			Time:                retentionTime,
			ByteOffset:          byteOffset,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("opentimssql: iterate frame rows: %w", err)
	}
	return descs, nil
}

// Copyright 2024 The OpenTIMS-Go Authors.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/opentims/opentims-go"
	_ "github.com/opentims/opentims-go/opentimssql" // registers the default metadata provider
)

var (
	vendorLib  string
	frameIDs   []uint32
	sliceStart uint32
	sliceEnd   uint32
	sliceStep  uint32
)

func openHandle(acquisitionDir string) (*opentims.DataHandle, error) {
	h, err := opentims.Open(acquisitionDir)
	if err != nil {
		return nil, err
	}
	if vendorLib != "" {
		if c, err := opentims.VendorTof2MzCalibratorFactory(vendorLib)(acquisitionDir); err == nil {
			h.SetTofToMz(c)
		} else {
			log.Printf("vendor tof->mz calibrator unavailable: %v", err)
		}
		if c, err := opentims.VendorScanToMobilityCalibratorFactory(vendorLib)(acquisitionDir); err == nil {
			h.SetScanToMobility(c)
		} else {
			log.Printf("vendor scan->mobility calibrator unavailable: %v", err)
		}
	}
	return h, nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	h, err := openHandle(args[0])
	if err != nil {
		return err
	}
	defer h.Close()

	summary := struct {
		PeaksTotal      uint64 `json:"peaks_total"`
		MaxPeaksInFrame uint32 `json:"max_peaks_in_frame"`
	}{
		PeaksTotal:      h.PeaksTotal(),
		MaxPeaksInFrame: h.MaxPeaksInFrame(),
	}
	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
	return nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	h, err := openHandle(args[0])
	if err != nil {
		return err
	}
	defer h.Close()

	var total uint64
	if len(frameIDs) > 0 {
		total, err = h.PeaksIn(frameIDs)
	} else {
		total, err = h.PeaksInSlice(sliceStart, sliceEnd, sliceStep)
	}
	if err != nil {
		return err
	}

	cols := opentims.Columns{
		FrameID:   make([]uint32, total),
		ScanID:    make([]uint32, total),
		Tof:       make([]uint32, total),
		Intensity: make([]uint32, total),
	}
	if len(frameIDs) > 0 {
		err = h.ExtractByIDs(frameIDs, cols)
	} else {
		err = h.ExtractBySlice(sliceStart, sliceEnd, sliceStep, cols)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for i := range cols.FrameID {
		enc.Encode(struct {
			Frame     uint32 `json:"frame"`
			Scan      uint32 `json:"scan"`
			Tof       uint32 `json:"tof"`
			Intensity uint32 `json:"intensity"`
		}{cols.FrameID[i], cols.ScanID[i], cols.Tof[i], cols.Intensity[i]})
	}
	return nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "opentims-dump",
		Short: "Inspect a TimsTOF acquisition directory",
		Long:  "A thin command-line front end over the opentims-go reader library",
	}
	rootCmd.PersistentFlags().StringVar(&vendorLib, "vendor-lib", "", "path to the Bruker vendor shared library (optional)")

	summaryCmd := &cobra.Command{
		Use:   "summary <acquisition-dir>",
		Short: "Print total and max peak counts for an acquisition",
		Args:  cobra.ExactArgs(1),
		RunE:  runSummary,
	}

	extractCmd := &cobra.Command{
		Use:   "extract <acquisition-dir>",
		Short: "Extract peaks for a set of frames and print them as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE:  runExtract,
	}
	extractCmd.Flags().Uint32SliceVar(&frameIDs, "ids", nil, "comma-separated frame ids to extract (overrides --start/--end/--step)")
	extractCmd.Flags().Uint32Var(&sliceStart, "start", 0, "slice start frame id (inclusive)")
	extractCmd.Flags().Uint32Var(&sliceEnd, "end", 0, "slice end frame id (exclusive)")
	extractCmd.Flags().Uint32Var(&sliceStep, "step", 1, "slice step")

	rootCmd.AddCommand(summaryCmd, extractCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

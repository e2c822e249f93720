// Copyright 2022 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/intel/etmem/pkg/etmem"
)

var scanOpts struct {
	pid          int
	addrRange    string
	hugeOnly     bool
	dirty        bool
	idleOnly     bool
	accessedOnly bool
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the idle pages of a process",
	Long: `Scan the address space of a process through the kernel
idle-page interface and print the resulting page runs with a summary.

Examples:
  # Scan the whole address space of pid 1234
  etmemctl scan --pid 1234

  # Scan one mapping, reporting only idle huge pages
  etmemctl scan --pid 1234 --range 7f0000000000-7f0000200000 --huge-only --idle-only`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanOpts.pid, "pid", 0, "process to scan")
	scanCmd.Flags().StringVar(&scanOpts.addrRange, "range", "", "address range START-STOP or START+SIZE in hex")
	scanCmd.Flags().BoolVar(&scanOpts.hugeOnly, "huge-only", false, "report only huge pages")
	scanCmd.Flags().BoolVar(&scanOpts.dirty, "dirty", false, "report the dirty bit")
	scanCmd.Flags().BoolVar(&scanOpts.idleOnly, "idle-only", false, "print only idle runs")
	scanCmd.Flags().BoolVar(&scanOpts.accessedOnly, "accessed-only", false, "print only accessed runs")
	scanCmd.MarkFlagRequired("pid")
}

func scanConfigFromFlags() etmem.ScanConfig {
	config := etmem.DefaultScanConfig()
	if scanOpts.hugeOnly {
		config.Flags = config.Flags.Union(etmem.ScanHugePage)
	}
	if scanOpts.dirty {
		config.Flags = config.Flags.Union(etmem.ScanDirtyPage)
	}
	return config
}

// scanRangeFromString parses a range flag and normalizes it to page
// boundaries. A huge-only scan additionally requires the range to sit
// on 2 MB boundaries.
func scanRangeFromString(s string, hugeOnly bool) (etmem.AddrRange, error) {
	r, err := etmem.NewAddrRangeFromString(s)
	if err != nil {
		return etmem.AddrRange{}, err
	}
	r = etmem.NewAddrRange(etmem.PageAlignDown(r.Start()), etmem.PageAlignUp(r.End()))
	if hugeOnly && (!etmem.HugePageAligned(r.Start()) || !etmem.HugePageAligned(r.End())) {
		return etmem.AddrRange{}, errors.Errorf("range %s is not 2 MB aligned", r)
	}
	return r, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanOpts.idleOnly && scanOpts.accessedOnly {
		return errors.New("--idle-only and --accessed-only are mutually exclusive")
	}
	if err := etmem.Init(); err != nil {
		return err
	}
	config := scanConfigFromFlags()

	var runs []etmem.PageRun
	var err error
	if scanOpts.addrRange != "" {
		var r etmem.AddrRange
		if r, err = scanRangeFromString(scanOpts.addrRange, scanOpts.hugeOnly); err != nil {
			return err
		}
		runs, err = etmem.ScanRange(scanOpts.pid, r, config)
	} else {
		runs, err = etmem.ScanProcess(scanOpts.pid, config)
	}
	if err != nil {
		return err
	}

	for _, run := range runs {
		if scanOpts.idleOnly && !run.IsIdle() {
			continue
		}
		if scanOpts.accessedOnly && !run.IsAccessed() {
			continue
		}
		fmt.Println(run.String())
	}
	fmt.Println(etmem.NewPageStats(runs).String())
	return nil
}

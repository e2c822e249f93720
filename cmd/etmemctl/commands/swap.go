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
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/intel/etmem/pkg/etmem"
)

var swapOpts struct {
	pid   int
	addrs string
}

var swapCmd = &cobra.Command{
	Use:   "swap",
	Short: "Swap out pages of a process",
	Long: `Write the given page addresses to the kernel swap interface
of a process. Addresses are hexadecimal and page aligned.

Example:
  etmemctl swap --pid 1234 --addrs 7f0000000000,7f0000001000`,
	RunE: runSwap,
}

func init() {
	swapCmd.Flags().IntVar(&swapOpts.pid, "pid", 0, "process to swap pages of")
	swapCmd.Flags().StringVar(&swapOpts.addrs, "addrs", "", "comma-separated hex page addresses")
	swapCmd.MarkFlagRequired("pid")
	swapCmd.MarkFlagRequired("addrs")
}

func parseAddrList(s string) ([]uint64, error) {
	var addrs []uint64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		addr, err := strconv.ParseUint(field, 16, 64)
		if err != nil {
			return nil, errors.Errorf("invalid address %q", field)
		}
		// Any address within a page swaps the whole page.
		addrs = append(addrs, etmem.PageAlignDown(addr))
	}
	if len(addrs) == 0 {
		return nil, errors.New("no addresses given")
	}
	return addrs, nil
}

func runSwap(cmd *cobra.Command, args []string) error {
	addrs, err := parseAddrList(swapOpts.addrs)
	if err != nil {
		return err
	}
	if err := etmem.Init(); err != nil {
		return err
	}
	count, err := etmem.SwapPages(swapOpts.pid, addrs)
	if err != nil {
		return err
	}
	fmt.Printf("swapped %d pages of pid %d\n", count, swapOpts.pid)
	return nil
}

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

// Package commands implements the etmemctl CLI commands.
package commands

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/intel/etmem/pkg/etmem"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "etmemctl",
	Short: "Scan idle memory and swap cold pages",
	Long: `etmemctl drives the kernel idle-page scan and swap interfaces
under /proc/<pid>/idle_pages and /proc/<pid>/swap_pages. It can report
per-process page temperature, push cold pages out to swap, configure
proactive swapcache reclaim, and run as a daemon watching a set of
processes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		etmem.SetLogger(log.New(os.Stderr, "", log.LstdFlags))
		etmem.SetLogDebug(verbose)
	},
}

// Execute runs the command named on the command line.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(swapCmd)
	rootCmd.AddCommand(reclaimCmd)
	rootCmd.AddCommand(swapcacheCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(bandwidthCmd)
	rootCmd.AddCommand(watchCmd)
}

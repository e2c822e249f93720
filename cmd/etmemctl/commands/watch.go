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
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/intel/etmem/pkg/etmem"
	"github.com/intel/etmem/pkg/metrics"
	"github.com/intel/etmem/pkg/pidfile"
	"github.com/intel/etmem/pkg/pool"
)

var watchOpts struct {
	configFile string
	pidFile    string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Periodically scan processes and swap out cold memory",
	Long: `Run as a daemon scanning the processes named in the policy
file. Scan statistics are exported as prometheus metrics, and when a
swap-out threshold is configured, idle pages of processes above it are
pushed out to swap.

Policy file format (YAML):
  pids: [1234, 5678]
  interval: 30            # seconds between scan rounds
  flags: "skim-idle"      # optional scan flags
  swapOutThreshold: 0.6   # swap idle pages when idle ratio exceeds this
  watermark:              # optional proactive reclaim per pid
    low: 30
    high: 70
  metricsAddress: ":8181" # optional /metrics endpoint
  workers: 4              # concurrent scans`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchOpts.configFile, "config", "", "policy file")
	watchCmd.Flags().StringVar(&watchOpts.pidFile, "pid-file", "", "pidfile path override")
	watchCmd.MarkFlagRequired("config")
}

// WatchPolicy is the daemon configuration read from the policy file.
type WatchPolicy struct {
	Pids             []int   `json:"pids"`
	Interval         int     `json:"interval"`
	Flags            string  `json:"flags"`
	SwapOutThreshold float64 `json:"swapOutThreshold"`
	Watermark        *struct {
		Low  uint32 `json:"low"`
		High uint32 `json:"high"`
	} `json:"watermark"`
	MetricsAddress string `json:"metricsAddress"`
	Workers        int    `json:"workers"`
}

func loadWatchPolicy(path string) (*WatchPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read policy file")
	}
	policy := &WatchPolicy{
		Interval: 30,
		Workers:  4,
	}
	if err := yaml.UnmarshalStrict(data, policy); err != nil {
		return nil, errors.Wrap(err, "failed to parse policy file")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return policy, nil
}

// Validate checks the policy fields.
func (p *WatchPolicy) Validate() error {
	if len(p.Pids) == 0 {
		return errors.New("policy names no pids")
	}
	for _, pid := range p.Pids {
		if pid <= 0 {
			return errors.Errorf("invalid pid %d", pid)
		}
	}
	if p.Interval <= 0 {
		return errors.Errorf("invalid interval %d", p.Interval)
	}
	if p.SwapOutThreshold < 0 || p.SwapOutThreshold >= 1 {
		return errors.Errorf("swap-out threshold %v out of range [0, 1)", p.SwapOutThreshold)
	}
	if p.Workers <= 0 {
		return errors.Errorf("invalid worker count %d", p.Workers)
	}
	if p.Watermark != nil {
		w := etmem.WatermarkConfig{LowPercent: p.Watermark.Low, HighPercent: p.Watermark.High}
		if err := w.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// scanConfig builds the scan configuration from the policy.
func (p *WatchPolicy) scanConfig() (etmem.ScanConfig, error) {
	config := etmem.DefaultScanConfig()
	flags, err := etmem.ParseScanFlags(p.Flags)
	if err != nil {
		return config, err
	}
	config.Flags = flags
	return config, err
}

func runWatch(cmd *cobra.Command, args []string) error {
	policy, err := loadWatchPolicy(watchOpts.configFile)
	if err != nil {
		return err
	}
	scanConfig, err := policy.scanConfig()
	if err != nil {
		return err
	}
	if err := etmem.Init(); err != nil {
		return err
	}

	if watchOpts.pidFile != "" {
		pidfile.SetPath(watchOpts.pidFile)
	}
	if owner, err := pidfile.OwnerPid(); err == nil && owner > 0 {
		return errors.Errorf("already running as pid %d", owner)
	}
	pidfile.Remove()
	if err := pidfile.Write(); err != nil {
		return err
	}
	defer pidfile.Remove()

	collector := etmem.NewStatsCollector()
	if err := metrics.RegisterCollector("etmem", func() (prometheus.Collector, error) {
		return collector, nil
	}); err != nil {
		return err
	}

	if policy.MetricsAddress != "" {
		gatherer, err := metrics.NewMetricGatherer()
		if err != nil {
			return err
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(policy.MetricsAddress, mux); err != nil {
				fmt.Fprintf(os.Stderr, "metrics endpoint failed: %v\n", err)
			}
		}()
	}

	if policy.Watermark != nil {
		w := etmem.WatermarkConfig{
			LowPercent:  policy.Watermark.Low,
			HighPercent: policy.Watermark.High,
		}
		for _, pid := range policy.Pids {
			if err := etmem.ConfigureProactiveReclaim(pid, w, true); err != nil {
				fmt.Fprintf(os.Stderr, "pid %d: reclaim setup failed: %v\n", pid, err)
			}
		}
	}

	workers, err := pool.New(policy.Workers)
	if err != nil {
		return err
	}
	defer workers.Shutdown()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	ticker := time.NewTicker(time.Duration(policy.Interval) * time.Second)
	defer ticker.Stop()

	watchRound(policy, scanConfig, collector, workers)
	for {
		select {
		case <-sigChan:
			return nil
		case <-ticker.C:
			watchRound(policy, scanConfig, collector, workers)
		}
	}
}

// watchRound scans every watched pid once, concurrently.
func watchRound(policy *WatchPolicy, config etmem.ScanConfig,
	collector *etmem.StatsCollector, workers *pool.Pool) {
	// Wait even when a submit fails, so scans already dispatched
	// finish before the next round starts.
	defer workers.Wait()
	for _, pid := range policy.Pids {
		pid := pid
		err := workers.Submit(func() {
			watchPid(pid, policy, config, collector)
		})
		if err != nil {
			return
		}
	}
}

func watchPid(pid int, policy *WatchPolicy, config etmem.ScanConfig,
	collector *etmem.StatsCollector) {
	runs, err := etmem.ScanProcess(pid, config)
	if err != nil {
		if errors.Is(err, etmem.ErrProcessNotFound) {
			collector.Forget(pid)
		}
		fmt.Fprintf(os.Stderr, "pid %d: scan failed: %v\n", pid, err)
		return
	}
	stats := etmem.NewPageStats(runs)
	collector.UpdateScan(pid, stats)

	if policy.SwapOutThreshold <= 0 || !stats.HasIdleMemory(policy.SwapOutThreshold) {
		return
	}

	var addrs []uint64
	for _, run := range runs {
		if !run.IsIdle() {
			continue
		}
		step := run.Type.PageSize()
		for addr := run.Addr; addr < run.EndAddr(); addr += step {
			addrs = append(addrs, addr)
		}
	}
	if len(addrs) == 0 {
		return
	}
	count, err := etmem.SwapPages(pid, addrs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pid %d: swap failed: %v\n", pid, err)
		return
	}
	collector.AccountSwap(pid, count)
}

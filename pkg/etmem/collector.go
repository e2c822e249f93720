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

package etmem

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	descIdleBytes = prometheus.NewDesc(
		"etmem_idle_bytes",
		"Bytes of idle memory found by the last scan.",
		[]string{"pid"}, nil)
	descAccessedBytes = prometheus.NewDesc(
		"etmem_accessed_bytes",
		"Bytes of accessed memory found by the last scan.",
		[]string{"pid"}, nil)
	descTotalBytes = prometheus.NewDesc(
		"etmem_scanned_bytes",
		"Bytes covered by the last scan.",
		[]string{"pid"}, nil)
	descIdleRatio = prometheus.NewDesc(
		"etmem_idle_ratio",
		"Idle share of scanned bytes in the last scan.",
		[]string{"pid"}, nil)
	descSwappedPages = prometheus.NewDesc(
		"etmem_swapped_pages_total",
		"Pages submitted for swap out.",
		[]string{"pid"}, nil)
)

// StatsCollector exposes scan and swap statistics per pid as
// prometheus metrics. Scan loops feed it with UpdateScan and
// AccountSwap.
type StatsCollector struct {
	mutex   sync.Mutex
	scans   map[int]*PageStats
	swapped map[int]uint64
}

// NewStatsCollector returns an empty collector.
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{
		scans:   make(map[int]*PageStats),
		swapped: make(map[int]uint64),
	}
}

// UpdateScan records the statistics of the latest scan of pid.
func (c *StatsCollector) UpdateScan(pid int, stats *PageStats) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.scans[pid] = stats
}

// AccountSwap adds pages to the swap-out counter of pid.
func (c *StatsCollector) AccountSwap(pid int, pages int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.swapped[pid] += uint64(pages)
}

// Forget drops all statistics of pid, for processes that exited.
func (c *StatsCollector) Forget(pid int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.scans, pid)
	delete(c.swapped, pid)
}

// Describe implements prometheus.Collector.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- descIdleBytes
	ch <- descAccessedBytes
	ch <- descTotalBytes
	ch <- descIdleRatio
	ch <- descSwappedPages
}

// Collect implements prometheus.Collector.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for pid, stats := range c.scans {
		label := strconv.Itoa(pid)
		ch <- prometheus.MustNewConstMetric(descIdleBytes, prometheus.GaugeValue,
			float64(stats.IdleBytes), label)
		ch <- prometheus.MustNewConstMetric(descAccessedBytes, prometheus.GaugeValue,
			float64(stats.AccessedBytes), label)
		ch <- prometheus.MustNewConstMetric(descTotalBytes, prometheus.GaugeValue,
			float64(stats.TotalBytes), label)
		ch <- prometheus.MustNewConstMetric(descIdleRatio, prometheus.GaugeValue,
			stats.IdleRatio(), label)
	}
	for pid, pages := range c.swapped {
		ch <- prometheus.MustNewConstMetric(descSwappedPages, prometheus.CounterValue,
			float64(pages), strconv.Itoa(pid))
	}
}

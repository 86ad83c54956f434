// Package diskmetrics exposes a local disk's runtime state as prometheus
// gauges, grounded on the gauge names and pool/set labels the teacher
// assigns in cmd/metrics-v3-cluster-erasure-set.go.
package diskmetrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mojofs/mojofs/internal/ecstore/disk"
)

const (
	poolIDLabel = "pool_id"
	setIDLabel  = "set_id"
	diskIDLabel = "disk_id"
)

// Collector samples one Disk's state on every Prometheus scrape.
type Collector struct {
	d *disk.Disk

	total    *prometheus.GaugeVec
	free     *prometheus.GaugeVec
	used     *prometheus.GaugeVec
	rootDisk *prometheus.GaugeVec
	online   *prometheus.GaugeVec
}

// NewCollector returns a Collector sampling d, labeled by its endpoint's
// pool/set/disk coordinates.
func NewCollector(d *disk.Disk) *Collector {
	labels := []string{poolIDLabel, setIDLabel, diskIDLabel}
	return &Collector{
		d: d,
		total: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mojofs",
			Subsystem: "disk",
			Name:      "total_bytes",
			Help:      "Total filesystem capacity of the disk.",
		}, labels),
		free: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mojofs",
			Subsystem: "disk",
			Name:      "free_bytes",
			Help:      "Free filesystem capacity of the disk.",
		}, labels),
		used: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mojofs",
			Subsystem: "disk",
			Name:      "used_bytes",
			Help:      "Used filesystem capacity of the disk.",
		}, labels),
		rootDisk: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mojofs",
			Subsystem: "disk",
			Name:      "is_root_disk",
			Help:      "1 if the disk root shares the OS root filesystem, 0 otherwise.",
		}, labels),
		online: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mojofs",
			Subsystem: "disk",
			Name:      "online",
			Help:      "1 if the last disk_info sample succeeded, 0 otherwise.",
		}, labels),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.total.Describe(ch)
	c.free.Describe(ch)
	c.used.Describe(ch)
	c.rootDisk.Describe(ch)
	c.online.Describe(ch)
}

// Collect implements prometheus.Collector, sampling the underlying Disk
// on every call. disk_info's own cache (spec.md §4.I) keeps repeated
// scrapes cheap.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	labels := prometheus.Labels{
		poolIDLabel: strconv.Itoa(c.d.Endpoint.PoolIdx),
		setIDLabel:  strconv.Itoa(c.d.Endpoint.SetIdx),
		diskIDLabel: strconv.Itoa(c.d.Endpoint.DiskIdx),
	}

	info, err := c.d.DiskInfo(context.Background(), disk.DiskInfoOptions{NoWait: true, ReturnLastGood: true})
	if err != nil {
		c.online.With(labels).Set(0)
		c.online.Collect(ch)
		return
	}

	c.online.With(labels).Set(1)
	c.total.With(labels).Set(float64(info.Total))
	c.free.With(labels).Set(float64(info.Free))
	c.used.With(labels).Set(float64(info.Used))
	c.rootDisk.With(labels).Set(b2f(info.RootDisk))

	c.total.Collect(ch)
	c.free.Collect(ch)
	c.used.Collect(ch)
	c.rootDisk.Collect(ch)
	c.online.Collect(ch)
}

func b2f(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

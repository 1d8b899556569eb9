/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package metrics exposes the supervisor's pool state as Prometheus
// collectors: gauges for the live pool shape and for the request count
// summed over the live workers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nabbar/prefork/event"
	"github.com/nabbar/prefork/supervisor"
)

// Pool tracks one supervisor's worker pool.
type Pool struct {
	workers prometheus.Gauge
	busy    prometheus.Gauge
	spares  prometheus.Gauge
	reqs    prometheus.Gauge
}

// New creates the pool collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer to publish on the default registry.
func New(reg prometheus.Registerer) (*Pool, error) {
	p := &Pool{
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prefork_workers",
			Help: "Number of live worker processes.",
		}),
		busy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prefork_workers_busy",
			Help: "Number of workers currently servicing a request.",
		}),
		spares: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prefork_workers_spare",
			Help: "Number of idle workers available to accept work.",
		}),
		reqs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prefork_requests_processed",
			Help: "Requests processed, summed over the live workers as last reported.",
		}),
	}

	for _, c := range []prometheus.Collector{p.workers, p.busy, p.spares, p.reqs} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Observe is a supervisor.FuncSnapshot: hand it to supervisor.New to
// refresh the collectors after each supervision-loop iteration.
func (p *Pool) Observe(snap supervisor.Snapshot) {
	var busy, total uint64
	for _, w := range snap.Workers {
		if w.State == event.Busy {
			busy++
		}
		total += w.Processed
	}

	p.workers.Set(float64(len(snap.Workers)))
	p.busy.Set(float64(busy))
	p.spares.Set(float64(len(snap.Workers)) - float64(busy))
	p.reqs.Set(float64(total))
}

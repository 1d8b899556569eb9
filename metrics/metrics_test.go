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

package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nabbar/prefork/event"
	"github.com/nabbar/prefork/metrics"
	"github.com/nabbar/prefork/supervisor"
)

func TestPool_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()

	p, err := metrics.New(reg)
	require.NoError(t, err)

	p.Observe(supervisor.Snapshot{Workers: []supervisor.WorkerState{
		{Pid: 101, State: event.Busy, Processed: 3},
		{Pid: 102, State: event.Waiting, Processed: 5},
		{Pid: 103, State: event.Waiting, Processed: 0},
	}})

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 4)

	get := func(name string) float64 {
		for _, f := range families {
			if f.GetName() == name {
				return f.GetMetric()[0].GetGauge().GetValue()
			}
		}
		t.Fatalf("metric %s not gathered", name)
		return 0
	}

	assert.Equal(t, float64(3), get("prefork_workers"))
	assert.Equal(t, float64(1), get("prefork_workers_busy"))
	assert.Equal(t, float64(2), get("prefork_workers_spare"))
	assert.Equal(t, float64(8), get("prefork_requests_processed"))
}

func TestPool_RegisterTwiceFails(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := metrics.New(reg)
	require.NoError(t, err)

	_, err = metrics.New(reg)
	require.Error(t, err)
}

func TestPool_CollectorLint(t *testing.T) {
	reg := prometheus.NewRegistry()

	p, err := metrics.New(reg)
	require.NoError(t, err)
	p.Observe(supervisor.Snapshot{})

	problems, err := testutil.GatherAndLint(reg)
	require.NoError(t, err)
	assert.Empty(t, problems)
}

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

package supervisor

import "sort"

// Decision is the sizing controller's output for one loop iteration:
// how many workers to fork and which pids to retire.
type Decision struct {
	Fork int
	Kill []int
}

// Empty reports whether the decision changes nothing.
func (d Decision) Empty() bool {
	return d.Fork == 0 && len(d.Kill) == 0
}

// assessState is the sizing controller, a pure function of the current
// pool snapshot and the configured bounds.
//
// Under-spared pools fork the spare deficit clamped to the headroom
// below MaxWorkers. Over-spared pools retire the spare excess, but
// only past MaxSpares+MinWorkers: the hysteresis term suppresses kills
// whenever the pool is near its minimum size, so fork and kill
// triggers never oscillate around MinWorkers. Retirement prefers the
// workers with the most requests processed, the ones closest to cache
// or config staleness. Finally, a pool below MinWorkers is topped up,
// net of the forks the spare deficit already decided.
func assessState(cfg Config, snap Snapshot) Decision {
	var d Decision

	n := len(snap.Workers)
	spares := snap.Spares()

	if spares < cfg.MinSpares {
		need := cfg.MinSpares - spares
		if headroom := cfg.MaxWorkers - n; need > headroom {
			need = headroom
		}
		if need > 0 {
			d.Fork = need
		}
	} else if spares > cfg.MaxSpares+cfg.MinWorkers {
		toKill := spares - cfg.MaxSpares

		ranked := make([]WorkerState, len(snap.Workers))
		copy(ranked, snap.Workers)
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Processed > ranked[j].Processed
		})

		for _, w := range ranked {
			if len(d.Kill) >= toKill {
				break
			}
			d.Kill = append(d.Kill, w.Pid)
		}
	}

	if need := cfg.MinWorkers - n - d.Fork; need > 0 {
		d.Fork += need
	}

	return d
}

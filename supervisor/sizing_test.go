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

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/prefork/event"
)

func pool(states ...event.Code) Snapshot {
	var s Snapshot
	for i, st := range states {
		s.Workers = append(s.Workers, WorkerState{Pid: 1000 + i, State: st})
	}
	return s
}

var _ = Describe("Sizing Controller", func() {
	cfg := Config{
		MaxWorkers: 10,
		MinWorkers: 2,
		MinSpares:  2,
		MaxSpares:  4,
	}

	Context("under-spared pool", func() {
		It("should fork the spare deficit", func() {
			// 4 workers, 3 busy, 1 spare: deficit is 1
			d := assessState(cfg, pool(event.Busy, event.Busy, event.Busy, event.Waiting))

			Expect(d.Fork).To(Equal(1))
			Expect(d.Kill).To(BeEmpty())
		})

		It("should clamp the fork count to the headroom below MaxWorkers", func() {
			// 9 workers all busy: deficit is 2 but only 1 slot left
			d := assessState(cfg, pool(
				event.Busy, event.Busy, event.Busy, event.Busy, event.Busy,
				event.Busy, event.Busy, event.Busy, event.Busy,
			))

			Expect(d.Fork).To(Equal(1))
		})

		It("should fork nothing at MaxWorkers even with zero spares", func() {
			d := assessState(cfg, pool(
				event.Busy, event.Busy, event.Busy, event.Busy, event.Busy,
				event.Busy, event.Busy, event.Busy, event.Busy, event.Busy,
			))

			Expect(d.Empty()).To(BeTrue())
		})
	})

	Context("over-spared pool", func() {
		It("should not kill below the hysteresis threshold", func() {
			// 6 spares: above MaxSpares (4) but not above MaxSpares+MinWorkers (6)
			d := assessState(cfg, pool(
				event.Waiting, event.Waiting, event.Waiting,
				event.Waiting, event.Waiting, event.Waiting,
			))

			Expect(d.Empty()).To(BeTrue())
		})

		It("should retire the spare excess past the threshold", func() {
			// 7 spares: 7 > 4+2, retire 7-4 = 3
			d := assessState(cfg, pool(
				event.Waiting, event.Waiting, event.Waiting, event.Waiting,
				event.Waiting, event.Waiting, event.Waiting,
			))

			Expect(d.Fork).To(BeZero())
			Expect(d.Kill).To(HaveLen(3))
		})

		It("should retire the most-used workers first", func() {
			snap := pool(
				event.Waiting, event.Waiting, event.Waiting, event.Waiting,
				event.Waiting, event.Waiting, event.Waiting,
			)
			for i := range snap.Workers {
				snap.Workers[i].Processed = uint64(i * 10)
			}

			d := assessState(cfg, snap)

			Expect(d.Kill).To(Equal([]int{
				snap.Workers[6].Pid,
				snap.Workers[5].Pid,
				snap.Workers[4].Pid,
			}))
		})
	})

	Context("under-minimum pool", func() {
		It("should top up to MinWorkers", func() {
			d := assessState(cfg, pool())

			Expect(d.Fork).To(Equal(2))
		})

		It("should not double-count the minimum top-up with the spare deficit", func() {
			// one busy worker left: the spare deficit already restores the minimum
			d := assessState(cfg, pool(event.Busy))

			Expect(d.Fork).To(Equal(2))
			Expect(d.Kill).To(BeEmpty())
		})
	})

	Context("fixed-size pool", func() {
		fixed := Config{
			MaxWorkers: 3,
			MinWorkers: 3,
			MinSpares:  0,
			MaxSpares:  1,
		}

		It("should never kill while fully idle", func() {
			// 3 spares: threshold is MaxSpares+MinWorkers = 4, never reachable
			d := assessState(fixed, pool(event.Waiting, event.Waiting, event.Waiting))

			Expect(d.Empty()).To(BeTrue())
		})

		It("should never fork past the fixed size", func() {
			d := assessState(fixed, pool(event.Busy, event.Busy, event.Busy))

			Expect(d.Empty()).To(BeTrue())
		})
	})
})

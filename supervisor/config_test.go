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
	libptc "github.com/nabbar/golib/network/protocol"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config Validation", func() {
	valid := Config{
		MaxWorkers: 20,
		MinWorkers: 5,
		MinSpares:  2,
		MaxSpares:  10,
		BindIP:     "127.0.0.1",
		Port:       10000,
		Protocol:   libptc.NetworkTCP,
		Backlog:    5,
	}

	It("should accept the stock parameters", func() {
		Expect(valid.Validate()).To(BeNil())
	})

	It("should reject min workers above max workers", func() {
		cfg := valid
		cfg.MinWorkers = 30

		err := cfg.Validate()
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(ErrorParamsInvalid)).To(BeTrue())
	})

	It("should reject min spares above max spares", func() {
		cfg := valid
		cfg.MinSpares = 11

		err := cfg.Validate()
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(ErrorParamsInvalid)).To(BeTrue())
	})

	It("should reject an unknown protocol", func() {
		cfg := valid
		cfg.Protocol = libptc.NetworkUnix

		err := cfg.Validate()
		Expect(err).ToNot(BeNil())
		Expect(err.IsCode(ErrorProtocolInvalid)).To(BeTrue())
	})

	It("should reject a negative request cap", func() {
		cfg := valid
		cfg.MaxRequests = -1

		Expect(cfg.Validate()).ToNot(BeNil())
	})

	It("should reject an out-of-range port", func() {
		cfg := valid
		cfg.Port = 70000

		Expect(cfg.Validate()).ToNot(BeNil())
	})

	It("should render the bind address", func() {
		Expect(valid.Address()).To(Equal("127.0.0.1:10000"))
	})
})

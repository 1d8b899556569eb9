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

package prefork

import (
	liberr "github.com/nabbar/golib/errors"
	libptc "github.com/nabbar/golib/network/protocol"
	"github.com/spf13/viper"

	"github.com/nabbar/prefork/supervisor"
)

// Config is the user-facing configuration of a prefork server. Every
// field is taken literally: a Port of 0 asks the kernel for an
// ephemeral port (BoundAddress reports the assigned one), and spare
// bounds of 0 mean exactly that. Start from DefaultConfig (or
// ConfigFromViper, which seeds it) and override what you need.
type Config struct {
	// MaxServers / MinServers bound the worker pool size.
	MaxServers int `json:"maxServers" yaml:"maxServers" toml:"maxServers" mapstructure:"maxServers"`
	MinServers int `json:"minServers" yaml:"minServers" toml:"minServers" mapstructure:"minServers"`

	// MinSpareServers / MaxSpareServers bound the number of idle
	// workers kept available for new connections.
	MinSpareServers int `json:"minSpareServers" yaml:"minSpareServers" toml:"minSpareServers" mapstructure:"minSpareServers"`
	MaxSpareServers int `json:"maxSpareServers" yaml:"maxSpareServers" toml:"maxSpareServers" mapstructure:"maxSpareServers"`

	// MaxRequests is the per-worker request cap before the worker is
	// recycled. Zero means unbounded.
	MaxRequests int `json:"maxRequests,omitempty" yaml:"maxRequests,omitempty" toml:"maxRequests,omitempty" mapstructure:"maxRequests,omitempty"`

	// BindIP and Port locate the listening endpoint.
	BindIP string `json:"bindIp" yaml:"bindIp" toml:"bindIp" mapstructure:"bindIp"`
	Port   int    `json:"port" yaml:"port" toml:"port" mapstructure:"port"`

	// Protocol is "tcp" or "udp".
	Protocol string `json:"protocol" yaml:"protocol" toml:"protocol" mapstructure:"protocol"`

	// Listen is the TCP listen backlog. Ignored for UDP.
	Listen int `json:"listen,omitempty" yaml:"listen,omitempty" toml:"listen,omitempty" mapstructure:"listen,omitempty"`

	// ReusePort makes each worker bind its own SO_REUSEPORT socket
	// instead of inheriting a shared one, where the OS supports it.
	ReusePort bool `json:"reusePort,omitempty" yaml:"reusePort,omitempty" toml:"reusePort,omitempty" mapstructure:"reusePort,omitempty"`
}

// DefaultConfig returns the stock parameters: a 5..20 pool with 2..10
// spares listening on tcp://127.0.0.1:10000 with a backlog of 5.
func DefaultConfig() Config {
	return Config{
		MaxServers:      20,
		MinServers:      5,
		MinSpareServers: 2,
		MaxSpareServers: 10,
		MaxRequests:     0,
		BindIP:          "127.0.0.1",
		Port:            10000,
		Protocol:        libptc.NetworkTCP.Code(),
		Listen:          5,
	}
}

// Supervisor maps the user-facing configuration onto the supervisor's
// internal one, field for field.
func (c Config) Supervisor() supervisor.Config {
	return supervisor.Config{
		MaxWorkers:  c.MaxServers,
		MinWorkers:  c.MinServers,
		MinSpares:   c.MinSpareServers,
		MaxSpares:   c.MaxSpareServers,
		MaxRequests: c.MaxRequests,
		BindIP:      c.BindIP,
		Port:        c.Port,
		Protocol:    libptc.Parse(c.Protocol),
		Backlog:     c.Listen,
		ReusePort:   c.ReusePort,
	}
}

// Validate enforces the construction-time range constraints.
func (c Config) Validate() liberr.Error {
	return c.Supervisor().Validate()
}

// ConfigFromViper unmarshals a Config from the given key of an already
// loaded viper instance, so the prefork block nests under any config
// file the embedding application maintains. The result starts from
// DefaultConfig: only keys actually present override it, so an
// explicit 0 in the file (ephemeral port, no proactive spares) is
// preserved while absent keys keep their stock values.
func ConfigFromViper(vpr *viper.Viper, key string) (Config, liberr.Error) {
	cfg := DefaultConfig()

	if key == "" {
		if err := vpr.Unmarshal(&cfg); err != nil {
			return cfg, ErrorConfigUnmarshal.Error(err)
		}
	} else if err := vpr.UnmarshalKey(key, &cfg); err != nil {
		return cfg, ErrorConfigUnmarshal.Error(err)
	}

	return cfg, nil
}

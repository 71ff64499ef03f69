// Copyright (c) 2024 The Ringmux Authors. All rights reserved.
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

package ringmux

import (
	"github.com/ringmux/ringmux/pkg/logging"
	"github.com/ringmux/ringmux/pkg/manager"
)

// Option is a function that sets up an option for the builder.
type Option func(opts *Options)

// Options are the configurable knobs of a builder and the multiplexer it
// produces.
type Options struct {
	// OpenManager constructs the merged-polling backend around the first
	// registered channel. It defaults to the native Linux backend; tests
	// and platforms without one inject their own.
	OpenManager manager.OpenFunc

	// Logger receives ringmux's own diagnostics. Defaults to the logger
	// configured by the RINGMUX_LOGGING_* environment variables.
	Logger logging.Logger
}

func initOptions(options ...Option) *Options {
	opts := new(Options)
	for _, option := range options {
		option(opts)
	}
	if opts.OpenManager == nil {
		// Stays nil on platforms without a native backend; Build reports
		// ErrManagerUnavailable.
		opts.OpenManager = defaultOpenManager
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetDefaultLogger()
	}
	return opts
}

// WithOptions sets up all options at once.
func WithOptions(options Options) Option {
	return func(opts *Options) {
		*opts = options
	}
}

// WithManager sets up the constructor of the merged-polling backend.
func WithManager(open manager.OpenFunc) Option {
	return func(opts *Options) {
		opts.OpenManager = open
	}
}

// WithLogger sets up a customized logger.
func WithLogger(logger logging.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// Copyright 2026 The Shepherd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// ConfigureLogging applies the [logging] section to the logrus standard
// logger.  Worker processes inherit the level through the environment,
// so the master calls this once before spawning anything.
func ConfigureLogging(l Logging) error {
	lvl, e := logrus.ParseLevel(l.Level)
	if e != nil {
		return fmt.Errorf("logging level: %w", e)
	}
	logrus.SetLevel(lvl)
	switch l.Format {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("logging format %q is not supported", l.Format)
	}
	return nil
}

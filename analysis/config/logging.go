// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"io"
	"log"
	"os"
)

type LogLevel int

const (
	// ErrLevel=1 - the minimum level of logging.
	ErrLevel LogLevel = iota + 1

	// WarnLevel=2 - the level for logging warnings, and errors
	WarnLevel

	// InfoLevel=3 - the level for logging high-level information, results
	InfoLevel

	// DebugLevel=4 - the level for debugging information: one line per function and per contract
	DebugLevel

	// TraceLevel=5 - the level for tracing every operation on the alias graphs. Only useful on small fixtures.
	TraceLevel
)

var levelNames = [...]string{
	ErrLevel:   "ERROR",
	WarnLevel:  "WARN",
	InfoLevel:  "INFO",
	DebugLevel: "DEBUG",
	TraceLevel: "TRACE",
}

func (l LogLevel) String() string {
	if l < ErrLevel || l > TraceLevel {
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
	return levelNames[l]
}

// A LogGroup holds one logger per level. A logger prints only if the level of the group is at least its own.
type LogGroup struct {
	level   LogLevel
	loggers [TraceLevel + 1]*log.Logger
}

// NewLogGroup returns a log group that is configured to the logging settings stored inside the config
func NewLogGroup(config *Config) *LogGroup {
	l := &LogGroup{level: LogLevel(config.LogLevel)}
	for level := ErrLevel; level <= TraceLevel; level++ {
		l.loggers[level] = log.New(os.Stderr, "["+level.String()+"] ", log.LstdFlags)
	}
	if config.SilenceWarn {
		l.loggers[WarnLevel].SetOutput(io.Discard)
	}
	return l
}

// Logs returns true if messages of the given level are printed
func (l *LogGroup) Logs(level LogLevel) bool {
	return l.level >= level
}

// LogsDebug returns true if the log group logs debug messages. Use it to guard expensive message construction.
func (l *LogGroup) LogsDebug() bool {
	return l.Logs(DebugLevel)
}

// LogsTrace returns true if the log group logs trace messages
func (l *LogGroup) LogsTrace() bool {
	return l.Logs(TraceLevel)
}

// SetAllOutput sets all the output writers to the writer provided. Silenced warnings stay silenced.
func (l *LogGroup) SetAllOutput(w io.Writer) {
	for level := ErrLevel; level <= TraceLevel; level++ {
		if level == WarnLevel && l.loggers[level].Writer() == io.Discard {
			continue
		}
		l.loggers[level].SetOutput(w)
	}
}

// SetAllFlags sets the flag of all loggers in the log group to the argument provided
func (l *LogGroup) SetAllFlags(x int) {
	for level := ErrLevel; level <= TraceLevel; level++ {
		l.loggers[level].SetFlags(x)
	}
}

func (l *LogGroup) logf(level LogLevel, format string, v ...any) {
	if l.level >= level {
		l.loggers[level].Printf(format, v...)
	}
}

// Tracef prints to the trace logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Tracef(format string, v ...any) { l.logf(TraceLevel, format, v...) }

// Debugf prints to the debug logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Debugf(format string, v ...any) { l.logf(DebugLevel, format, v...) }

// Infof prints to the info logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Infof(format string, v ...any) { l.logf(InfoLevel, format, v...) }

// Warnf prints to the warning logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Warnf(format string, v ...any) { l.logf(WarnLevel, format, v...) }

// Errorf prints to the error logger. Arguments are handled in the manner of Printf
func (l *LogGroup) Errorf(format string, v ...any) { l.logf(ErrLevel, format, v...) }

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/AdguardTeam/advtblock"
	"github.com/AdguardTeam/advtblock/metrics"
	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
)

// environment is the state shared by the commands.
type environment struct {
	opts *options

	// conf is the configuration from the file, or the default one if there is
	// no file.
	conf *configuration

	logger *slog.Logger

	stdout io.Writer
	stderr io.Writer

	// logFile is the opened log file, if any.
	logFile *os.File
}

// setup reads the configuration file and creates the logger.  It must be
// called by every command before anything else.
func (env *environment) setup() (err error) {
	env.conf = defaultConfiguration()
	if env.opts.ConfigPath != "" {
		env.conf, err = readConfig(env.opts.ConfigPath)
		if err != nil {
			return err
		}
	}

	var out io.Writer = env.stderr
	if env.opts.LogOutput != "" {
		// #nosec G302 -- The log file is meant to be readable.
		env.logFile, err = os.OpenFile(env.opts.LogOutput, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}

		out = env.logFile
	}

	lvl := slog.LevelInfo
	if env.opts.Verbose || env.conf.Verbose {
		lvl = slog.LevelDebug
	}

	env.logger = slogutil.New(&slogutil.Config{
		Output: out,
		Format: slogutil.FormatText,
		Level:  lvl,
	})

	return nil
}

// filterLists returns the paths of all filter lists to load.
func (env *environment) filterLists() (paths []string) {
	paths = append(paths, env.conf.Filters...)

	return append(paths, env.opts.FilterLists...)
}

// newInstance loads the filter lists and creates a registry with a single
// instance built of them.
func (env *environment) newInstance(m metrics.Interface) (reg *advtblock.Registry, h advtblock.Handle, err error) {
	lines, err := loadRules(env.filterLists())
	if err != nil {
		return nil, advtblock.Handle{}, err
	}

	reg = advtblock.NewRegistry(&advtblock.RegistryConfig{
		Logger:                     env.logger,
		Metrics:                    m,
		ImportantExceptionWinsTies: env.conf.ImportantExceptionWinsTies,
	})

	h, err = reg.CreateInstance(lines)
	if err != nil {
		return nil, advtblock.Handle{}, err
	}

	return reg, h, nil
}

// close releases the resources of the environment.
func (env *environment) close() {
	if env.logFile == nil {
		return
	}

	err := env.logFile.Close()
	if err != nil {
		_, _ = fmt.Fprintln(env.stderr, errors.Annotate(err, "closing log file: %w"))
	}
}

// logError logs err with msg if err is not nil.
func (env *environment) logError(msg string, err error) {
	if err != nil {
		env.logger.Error(msg, slogutil.KeyError, err)
	}
}
